package dispatch

import (
	"errors"
	"fmt"
)

// ErrUsage matches every UsageError via errors.Is.
var ErrUsage = errors.New("usage error")

// ErrorKind names the ways a command line can fail to bind or build.
type ErrorKind string

const (
	UnknownParameter         ErrorKind = "UnknownParameter"
	MissingRequiredParameter ErrorKind = "MissingRequiredParameter"
	TypeMismatch             ErrorKind = "TypeMismatch"
	MalformedBody            ErrorKind = "MalformedBody"
	MissingBody              ErrorKind = "MissingBody"
	UnboundPathParameter     ErrorKind = "UnboundPathParameter"
	InvalidArgument          ErrorKind = "InvalidArgument"
)

// UsageError is a binding or request-building failure caused by the command
// line rather than the API.
type UsageError struct {
	Kind       ErrorKind
	Name       string // parameter or flag the error is about
	Flag       string
	Expected   string
	Got        string
	Suggestion string
	Err        error
}

func (e *UsageError) Error() string {
	var msg string
	switch e.Kind {
	case UnknownParameter:
		msg = fmt.Sprintf("unknown flag %q", e.Name)
		if e.Suggestion != "" {
			msg += fmt.Sprintf(" (did you mean --%s?)", e.Suggestion)
		}
	case MissingRequiredParameter:
		msg = fmt.Sprintf("missing required parameter %q (--%s)", e.Name, e.Flag)
	case TypeMismatch:
		msg = fmt.Sprintf("parameter %q (--%s): expected %s, got %q", e.Name, e.Flag, e.Expected, e.Got)
	case MalformedBody:
		msg = "malformed request body"
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
	case MissingBody:
		msg = "this operation requires a request body (--body or --body-file)"
	case UnboundPathParameter:
		msg = fmt.Sprintf("path parameter {%s} is not bound", e.Name)
	default:
		msg = e.Name
		if e.Err != nil {
			msg = e.Err.Error()
		}
	}
	return msg
}

func (e *UsageError) Unwrap() error { return e.Err }

func (e *UsageError) Is(target error) bool { return target == ErrUsage }
