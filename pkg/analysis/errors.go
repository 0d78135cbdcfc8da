package analysis

import (
	"errors"
	"fmt"
)

// Failure kinds reported by sessions and completers. Match them with errors.Is.
var (
	// ErrParseFailed indicates the backend refused to produce a unit from the buffer.
	ErrParseFailed = errors.New("parse failed")

	// ErrReparseFailed indicates the existing unit became invalid and was released.
	ErrReparseFailed = errors.New("reparse failed")

	// ErrCompletionUnavailable indicates a completion query ran without a usable unit.
	ErrCompletionUnavailable = errors.New("completion unavailable")

	// ErrSessionClosed indicates the session was closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidPosition indicates a cursor position outside the accepted range.
	ErrInvalidPosition = errors.New("invalid cursor position")

	// ErrNoUnit indicates an operation that needs a parsed unit ran on an Empty session.
	ErrNoUnit = errors.New("no parsed unit")
)

// Error describes a failed session or completion operation.
type Error struct {
	Op    string // "parse", "reparse", "complete"
	File  string // virtual filename of the snapshot
	Kind  error  // one of the Err* sentinels
	Cause error  // backend error, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the kind and the cause so errors.Is matches both.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(op, file string, kind, cause error) *Error {
	return &Error{Op: op, File: file, Kind: kind, Cause: cause}
}
