package moodle

import "encoding/json"

// Wire shapes of the webservice responses, trimmed to the fields we read.

type siteInfoResp struct {
	UserID   int64  `json:"userid"`
	FullName string `json:"fullname"`
	SiteName string `json:"sitename"`
}

type courseModuleResp struct {
	CM struct {
		ID       int64  `json:"id"`
		Course   int64  `json:"course"`
		Instance int64  `json:"instance"`
		Name     string `json:"name"`
	} `json:"cm"`
}

type lessonResp struct {
	Lesson struct {
		ID     int64  `json:"id"`
		Course int64  `json:"course"`
		Name   string `json:"name"`
	} `json:"lesson"`
}

type pagesResp struct {
	Pages []struct {
		Page struct {
			ID    int64  `json:"id"`
			QType int    `json:"qtype"`
			Title string `json:"title"`
		} `json:"page"`
	} `json:"pages"`
}

type pageDataResp struct {
	Page struct {
		ID       int64  `json:"id"`
		QType    int    `json:"qtype"`
		Title    string `json:"title"`
		Contents string `json:"contents"`
	} `json:"page"`
	PageContent string `json:"pagecontent"`
}

// The grade table mixes row shapes (headers, spans, totals), so each cell
// group is decoded individually and rows without the expected cells are
// skipped.
type gradesTableResp struct {
	Tables []struct {
		TableData []json.RawMessage `json:"tabledata"`
	} `json:"tables"`
}

type gradeRow struct {
	ItemName *struct {
		Content string `json:"content"`
	} `json:"itemname"`
	Grade *struct {
		Content string `json:"content"`
	} `json:"grade"`
}

// wsFault probes any webservice body for the exception envelope before the
// real decode happens.
type wsFault struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

// GradeRow is one lesson grade extracted from the user grade table.
type GradeRow struct {
	LectureID int64
	Name      string
	Grade     float64
}
