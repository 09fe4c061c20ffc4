package moodle

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mind-engage/lessonbot/internal/lesson"
)

// hiddenInputs collects every hidden form field, the anti-forgery values the
// login form expects replayed.
func hiddenInputs(doc *goquery.Document) url.Values {
	form := url.Values{}
	doc.Find(`input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := sel.Attr("value")
		form.Set(name, value)
	})
	return form
}

func sesskeyFrom(doc *goquery.Document) (string, bool) {
	return doc.Find(`input[name="sesskey"]`).Attr("value")
}

// parseQuestion extracts the rendered question body from page contents.
func parseQuestion(contents string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		return "", err
	}
	sel := doc.Find("div.no-overflow").First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("question body not found")
	}
	return strings.TrimSpace(sel.Text()), nil
}

// parseOptions reads the answer form out of the rendered page content. The
// portal uses one question type code for both choice variants; a
// checkbox-style input in the first option is what marks a multi-choice page.
func parseOptions(pagecontent string) (multiple bool, opts []lesson.Option, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pagecontent))
	if err != nil {
		return false, nil, err
	}
	rows := doc.Find("div.answeroption")
	if rows.Length() == 0 {
		return false, nil, fmt.Errorf("no answer options found")
	}
	multiple = rows.First().Find(`input.form-check-input[type="checkbox"]`).Length() > 0

	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		var opt lesson.Option
		if multiple {
			check := row.Find("div.form-check").First()
			name, ok := check.Find("input.form-check-input").Attr("name")
			if !ok {
				err = fmt.Errorf("option %d: checkbox has no name", i)
				return false
			}
			opt = lesson.Option{ID: name, Text: strings.TrimSpace(check.Find("span").Text())}
		} else {
			value, ok := row.Find("input.form-check-input").Attr("value")
			if !ok {
				err = fmt.Errorf("option %d: radio has no value", i)
				return false
			}
			opt = lesson.Option{ID: value, Text: strings.TrimSpace(row.Find("label.form-check-label").Text())}
		}
		opts = append(opts, opt)
		return true
	})
	if err != nil {
		return false, nil, err
	}
	return multiple, opts, nil
}

// parseFeedback digs the verdict out of a submission response. Prefers the
// structural wrong-answer class when the theme renders one; the localized
// marker text is matched later, by lesson.Interpret.
func parseFeedback(html string) lesson.Feedback {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return lesson.Feedback{}
	}
	var fb lesson.Feedback
	responses := doc.Find("div.response")
	if responses.Length() > 0 {
		fb.HasResponse = true
		var parts []string
		responses.Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				parts = append(parts, text)
			}
			if sel.Find(".incorrectanswer, .studentincorrect").Length() > 0 {
				fb.MarkedIncorrect = true
			}
			if class, ok := sel.Attr("class"); ok && strings.Contains(class, "incorrect") {
				fb.MarkedIncorrect = true
			}
		})
		fb.Text = strings.Join(parts, "\n")
		return fb
	}
	if content := doc.Find("div.text_to_html").First(); content.Length() > 0 {
		fb.ContentText = strings.TrimSpace(content.Text())
	}
	return fb
}
