package plan

import (
	"errors"
	"fmt"
)

// ErrNoResults reports a valid search that matched nothing.
var ErrNoResults = errors.New("no results")

// ParseError reports a results banner whose last token is not a count.
type ParseError struct {
	Summary string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse results summary %q: %v", e.Summary, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SessionError reports a failure of the external source while opening,
// reading or navigating a session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
