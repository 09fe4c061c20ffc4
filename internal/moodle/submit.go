package moodle

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Form markers the lesson display form expects alongside each payload shape.
const (
	qfMultiAnswer  = "_qf__lesson_display_answer_form_multichoice_multianswer"
	qfSingleAnswer = "_qf__lesson_display_answer_form_multichoice_singleanswer"
	qfShortAnswer  = "_qf__lesson_display_answer_form_shortanswer"
)

// Lesson navigation sentinels.
const (
	jumpNext      = "-1"
	pageIDFinish  = "-9"
	startAttempt  = "startlastseen=no"
	viewPath      = "/mod/lesson/view.php"
	continuePath  = "/mod/lesson/continue.php"
)

// StartAttempt opens the lesson at its first page without resuming a previous
// position, and scrapes the sesskey every later submission must carry.
// Intentionally does not follow redirects; the portal bounces mid-lesson
// sessions around and the form is on the first response.
func (c *Client) StartAttempt(ctx context.Context, lectureID, firstPageID int64) error {
	u := fmt.Sprintf("%s%s?id=%d&pageid=%d&%s", c.domain, viewPath, lectureID, firstPageID, startAttempt)
	body, err := c.get(ctx, c.noRedirect, "start attempt", u)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("start attempt: %w", err)
	}
	key, ok := sesskeyFrom(doc)
	if !ok || key == "" {
		return fmt.Errorf("start attempt: sesskey not found; is the login session valid?")
	}
	c.sesskey = key
	return nil
}

// SubmitChoice posts a choice answer and returns the raw response page.
// Multi-choice payloads flag each checked option as its own truthy field
// keyed by the option identifier; single-choice uses one answerid field.
func (c *Client) SubmitChoice(ctx context.Context, lectureID, pageID int64, ids []string, multiple bool) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("submit: empty selection")
	}
	form := c.submitForm(lectureID, pageID)
	if multiple {
		for _, id := range ids {
			form.Set(id, "1")
		}
		form.Set(qfMultiAnswer, "1")
	} else {
		form.Set("answerid", ids[0])
		form.Set(qfSingleAnswer, "1")
	}
	body, err := c.postForm(ctx, c.http, "submit answer", c.domain+continuePath, form)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// SubmitText posts a short-answer response.
func (c *Client) SubmitText(ctx context.Context, lectureID, pageID int64, text string) (string, error) {
	form := c.submitForm(lectureID, pageID)
	form.Set("answer", text)
	form.Set(qfShortAnswer, "1")
	body, err := c.postForm(ctx, c.http, "submit answer", c.domain+continuePath, form)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PageTurn advances past a page without an answer payload.
func (c *Client) PageTurn(ctx context.Context, lectureID, pageID int64) error {
	form := c.submitForm(lectureID, pageID)
	form.Set("jumpto", jumpNext)
	_, err := c.postForm(ctx, c.http, "page turn", c.domain+viewPath, form)
	return err
}

// FinishLesson issues the end-of-lesson page turn that makes the portal
// grade the walk.
func (c *Client) FinishLesson(ctx context.Context, lectureID int64) error {
	form := url.Values{}
	form.Set("id", strconv.FormatInt(lectureID, 10))
	form.Set("pageid", pageIDFinish)
	form.Set("sesskey", c.sesskey)
	form.Set("jumpto", jumpNext)
	_, err := c.postForm(ctx, c.http, "finish lesson", c.domain+viewPath, form)
	return err
}

func (c *Client) submitForm(lectureID, pageID int64) url.Values {
	form := url.Values{}
	form.Set("id", strconv.FormatInt(lectureID, 10))
	form.Set("pageid", strconv.FormatInt(pageID, 10))
	form.Set("sesskey", c.sesskey)
	return form
}
