package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Lesson rows in the grade table link to the lesson grade page; the link
	// carries the course-module id we key everything on.
	lessonGradeRe = regexp.MustCompile(`mod/lesson/grade\.php\?id=(\d+)`)
	itemTitleRe   = regexp.MustCompile(`title="([^"]*)"`)
)

// Grades fetches the user grade table for a course and extracts every lesson
// row. Non-lesson rows, headers and ungraded entries are skipped.
func (c *Client) Grades(ctx context.Context, courseID int64) ([]GradeRow, error) {
	params := url.Values{}
	params.Set("courseid", strconv.FormatInt(courseID, 10))
	params.Set("userid", strconv.FormatInt(c.userID, 10))

	var table gradesTableResp
	if err := c.callWS(ctx, "gradereport_user_get_grades_table", params, &table); err != nil {
		return nil, err
	}

	var rows []GradeRow
	for _, t := range table.Tables {
		for _, raw := range t.TableData {
			var row gradeRow
			if err := json.Unmarshal(raw, &row); err != nil {
				continue // header/span rows have a different shape
			}
			if row.ItemName == nil || row.Grade == nil {
				continue
			}
			idMatch := lessonGradeRe.FindStringSubmatch(row.ItemName.Content)
			titleMatch := itemTitleRe.FindStringSubmatch(row.ItemName.Content)
			if idMatch == nil || titleMatch == nil {
				continue
			}
			id, err := strconv.ParseInt(idMatch[1], 10, 64)
			if err != nil {
				continue
			}
			grade, err := parseGradeValue(row.Grade.Content)
			if err != nil {
				continue
			}
			rows = append(rows, GradeRow{LectureID: id, Name: titleMatch[1], Grade: grade})
		}
	}
	return rows, nil
}

// parseGradeValue handles the comma decimal separator the portal renders.
func parseGradeValue(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || s == "-" {
		return 0, fmt.Errorf("no grade")
	}
	return strconv.ParseFloat(s, 64)
}
