package moodle

import (
	"errors"
	"fmt"
)

// ErrAuthFailed means the portal re-rendered the login form instead of a
// session. Never retried.
var ErrAuthFailed = errors.New("moodle: authentication failed")

// RemoteError is an "exception" payload returned by a webservice call. The
// portal reports bad ids, expired tokens and permission problems this way,
// always with HTTP 200.
type RemoteError struct {
	Exception string
	ErrorCode string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("moodle: %s (%s)", e.Message, e.ErrorCode)
	}
	return fmt.Sprintf("moodle: remote exception %s", e.Exception)
}

// HTTPError is a non-2xx transport response. 5xx instances are retried.
type HTTPError struct {
	Op         string
	Status     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: portal returned %s", e.Op, e.Status)
}

func (e *HTTPError) Temporary() bool { return e.StatusCode >= 500 }
