// Package platform defines the contract between the resolution engine and
// the per-platform clients that perform network lookups and downloads.
package platform

import (
	"errors"
	"time"
)

var (
	// ErrNotAuthenticated means the operation requires a logged-in session
	// that is absent. Aborts the platform's resolution pass.
	ErrNotAuthenticated = errors.New("platform session not authenticated")

	// ErrBlocked means the account or IP has been flagged by the remote
	// platform. Not recoverable within the session; aborts the platform's
	// resolution pass.
	ErrBlocked = errors.New("platform blocked the client")

	// ErrRateLimited means the sustained request rate was exceeded.
	// Clients recover from it internally by backing off.
	ErrRateLimited = errors.New("platform rate limit exceeded")
)

// ClientError is a timestamped, coded error recorded by a client's sink.
type ClientError struct {
	Code int       `json:"code"`
	Err  string    `json:"error"`
	Time time.Time `json:"time"`
}

// ErrorSink accumulates client errors for later inspection. Clients embed
// one; the API exposes the recorded errors per platform.
type ErrorSink struct {
	errs []ClientError
}

func (s *ErrorSink) Record(code int, err error) {
	s.errs = append(s.errs, ClientError{Code: code, Err: err.Error(), Time: time.Now().UTC()})
}

func (s *ErrorSink) Errors() []ClientError {
	return s.errs
}
