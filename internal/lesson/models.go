package lesson

import "context"

// Lecture is the gradable content-module instance wrapping a lesson. Resolved
// once per run and immutable afterwards.
type Lecture struct {
	ID       int64 // course-module id, what the user passes on the CLI
	LessonID int64 // lesson instance behind the module
	Name     string
	CourseID int64
}

// Option is one selectable answer. ID is the remote identifier (numeric for
// radio options, an input name for checkbox options) and may change between
// fetches; Text is the rendered label and is the stable part.
type Option struct {
	ID   string
	Text string
}

// PageRef is one entry of the ordered page listing.
type PageRef struct {
	ID int64
}

// Page is a fully fetched lesson page: the remote type code plus the parsed
// question body and options supplied by the presentation layer.
type Page struct {
	ID       int64
	QType    int
	Question string
	Multiple bool // options rendered as checkboxes
	Options  []Option
}

// Feedback is the parsed remnant of a submission response. HasResponse means
// the portal rendered a feedback block at all; MarkedIncorrect is the
// structural wrong-answer signal, when the markup carries one.
type Feedback struct {
	HasResponse     bool
	Text            string
	MarkedIncorrect bool
	ContentText     string // plain content shown on informational pages
}

// Service is the remote lesson portal as seen by the core. Implemented by
// internal/moodle; tests substitute fakes.
type Service interface {
	ResolveLecture(ctx context.Context, lectureID int64) (Lecture, error)
	LessonGrade(ctx context.Context, courseID, lectureID int64) (float64, bool, error)
	Pages(ctx context.Context, lessonID int64) ([]PageRef, error)
	FetchPage(ctx context.Context, lessonID, pageID int64) (Page, error)

	// StartAttempt opens the lesson at its first page and captures the
	// page-turn session token used by every submission below.
	StartAttempt(ctx context.Context, lectureID, firstPageID int64) error

	SubmitChoice(ctx context.Context, lectureID, pageID int64, ids []string, multiple bool) (Feedback, error)
	SubmitText(ctx context.Context, lectureID, pageID int64, text string) (Feedback, error)
	PageTurn(ctx context.Context, lectureID, pageID int64) error
	FinishLesson(ctx context.Context, lectureID int64) error
}

// ParseError marks a page whose markup did not contain what we expect. The
// orchestrator skips such pages with a warning instead of aborting the run;
// later pages are independent once the page turn has advanced.
type ParseError struct {
	PageID int64
	What   string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.What + ": " + e.Err.Error()
	}
	return e.What
}

func (e *ParseError) Unwrap() error { return e.Err }
