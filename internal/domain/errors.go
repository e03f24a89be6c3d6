package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindConnection        ErrorKind = "connection"
	KindSubmission        ErrorKind = "submission"
	KindClientRequest     ErrorKind = "client_request"
	KindServer            ErrorKind = "server"
	KindTimeout           ErrorKind = "timeout"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// Sentinels for errors.Is checks against an *Error of the matching kind.
var (
	ErrConnection        = &Error{Kind: KindConnection}
	ErrSubmission        = &Error{Kind: KindSubmission}
	ErrClientRequest     = &Error{Kind: KindClientRequest}
	ErrServer            = &Error{Kind: KindServer}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
)

var (
	ErrEmptyKey       = errors.New("key cannot be empty")
	ErrInvalidRequest = errors.New("invalid matrix request")
)

// Error is returned by every matrix routing operation that fails at the
// protocol level. Points keeps the server's per-point errors so callers can
// correlate failures with input points.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	JobID      string
	Message    string
	Points     []PointError
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.JobID != "" {
		fmt.Fprintf(&b, " job_id=%s", e.JobID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. Kinds of wrapped
// causes are reached through Unwrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Return the per-point errors of the first *Error in the chain that has any.
func PointErrors(err error) []PointError {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil
		}
		if len(e.Points) > 0 {
			return e.Points
		}
		err = e.Err
	}
	return nil
}
