// Package errors defines the typed errors surfaced by the image processor.
//
// Every failure a caller can observe carries a machine-readable Kind:
//
//   - KindValidation: conflicting or malformed spec fields, unsupported
//     formats, a watermark spec without overlay bytes. Never retried.
//   - KindOverloaded: queue depth exceeded at admission. A backpressure
//     signal; the caller may retry later.
//   - KindTimedOut: the job or request deadline fired. Not retried internally.
//   - KindUnavailable: admission attempted during shutdown drain.
//   - KindCodec: the codec engine reported a failure, e.g. corrupt input.
//     Surfaced with the engine diagnostic, not retried.
//   - KindCancelled: the caller aborted the request.
package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindOverloaded  Kind = "OVERLOADED"
	KindTimedOut    Kind = "TIMED_OUT"
	KindUnavailable Kind = "UNAVAILABLE"
	KindCodec       Kind = "CODEC"
	KindCancelled   Kind = "CANCELLED"
)

// Error is a structured error with a kind and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}

	return false
}

// GetKind extracts the kind from an error, or "" for untyped errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}
