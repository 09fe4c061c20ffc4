package moodle

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mind-engage/lessonbot/internal/lesson"
)

// Service adapts Client to the lesson.Service contract: webservice wire
// shapes in, structured pages and feedback out.
type Service struct {
	Client *Client
}

var _ lesson.Service = (*Service)(nil)

func NewService(c *Client) *Service { return &Service{Client: c} }

func (s *Service) ResolveLecture(ctx context.Context, lectureID int64) (lesson.Lecture, error) {
	params := url.Values{}
	params.Set("cmid", strconv.FormatInt(lectureID, 10))
	var cm courseModuleResp
	if err := s.Client.callWS(ctx, "core_course_get_course_module", params, &cm); err != nil {
		return lesson.Lecture{}, err
	}

	params = url.Values{}
	params.Set("lessonid", strconv.FormatInt(cm.CM.Instance, 10))
	var ls lessonResp
	if err := s.Client.callWS(ctx, "mod_lesson_get_lesson", params, &ls); err != nil {
		return lesson.Lecture{}, err
	}

	return lesson.Lecture{
		ID:       lectureID,
		LessonID: cm.CM.Instance,
		Name:     ls.Lesson.Name,
		CourseID: ls.Lesson.Course,
	}, nil
}

func (s *Service) LessonGrade(ctx context.Context, courseID, lectureID int64) (float64, bool, error) {
	rows, err := s.Client.Grades(ctx, courseID)
	if err != nil {
		return 0, false, err
	}
	for _, row := range rows {
		if row.LectureID == lectureID {
			return row.Grade, true, nil
		}
	}
	return 0, false, nil
}

func (s *Service) Pages(ctx context.Context, lessonID int64) ([]lesson.PageRef, error) {
	params := url.Values{}
	params.Set("lessonid", strconv.FormatInt(lessonID, 10))
	var resp pagesResp
	if err := s.Client.callWS(ctx, "mod_lesson_get_pages", params, &resp); err != nil {
		return nil, err
	}
	refs := make([]lesson.PageRef, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		refs = append(refs, lesson.PageRef{ID: p.Page.ID})
	}
	return refs, nil
}

// FetchPage retrieves one page and parses what its kind needs: question plus
// options for choice pages, question only for short answers, nothing for
// informational page turns. Markup surprises come back as *lesson.ParseError
// so the orchestrator can skip the page.
func (s *Service) FetchPage(ctx context.Context, lessonID, pageID int64) (lesson.Page, error) {
	params := url.Values{}
	params.Set("lessonid", strconv.FormatInt(lessonID, 10))
	params.Set("pageid", strconv.FormatInt(pageID, 10))
	params.Set("returncontents", "1")
	var resp pageDataResp
	if err := s.Client.callWS(ctx, "mod_lesson_get_page_data", params, &resp); err != nil {
		return lesson.Page{}, err
	}

	pg := lesson.Page{ID: pageID, QType: resp.Page.QType}
	switch resp.Page.QType {
	case qtypeChoice:
		question, err := parseQuestion(resp.Page.Contents)
		if err != nil {
			return lesson.Page{}, &lesson.ParseError{PageID: pageID, What: "question body", Err: err}
		}
		multiple, opts, err := parseOptions(resp.PageContent)
		if err != nil {
			return lesson.Page{}, &lesson.ParseError{PageID: pageID, What: "answer options", Err: err}
		}
		pg.Question = question
		pg.Multiple = multiple
		pg.Options = opts
	case qtypeShort:
		question, err := parseQuestion(resp.Page.Contents)
		if err != nil {
			return lesson.Page{}, &lesson.ParseError{PageID: pageID, What: "question body", Err: err}
		}
		pg.Question = question
	}
	return pg, nil
}

// Remote question type codes, mirrored from the lesson module tables.
const (
	qtypeChoice = 3
	qtypeShort  = 8
)

func (s *Service) StartAttempt(ctx context.Context, lectureID, firstPageID int64) error {
	return s.Client.StartAttempt(ctx, lectureID, firstPageID)
}

func (s *Service) SubmitChoice(ctx context.Context, lectureID, pageID int64, ids []string, multiple bool) (lesson.Feedback, error) {
	html, err := s.Client.SubmitChoice(ctx, lectureID, pageID, ids, multiple)
	if err != nil {
		return lesson.Feedback{}, err
	}
	return parseFeedback(html), nil
}

func (s *Service) SubmitText(ctx context.Context, lectureID, pageID int64, text string) (lesson.Feedback, error) {
	html, err := s.Client.SubmitText(ctx, lectureID, pageID, text)
	if err != nil {
		return lesson.Feedback{}, err
	}
	return parseFeedback(html), nil
}

func (s *Service) PageTurn(ctx context.Context, lectureID, pageID int64) error {
	return s.Client.PageTurn(ctx, lectureID, pageID)
}

func (s *Service) FinishLesson(ctx context.Context, lectureID int64) error {
	return s.Client.FinishLesson(ctx, lectureID)
}
