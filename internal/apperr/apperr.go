// Package apperr holds the business error taxonomy shared by the quiz engine
// and the dashboard synchronizer. Anything that is not an *Error is treated as
// an infrastructure failure by the transport layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindAuthorization Kind = "AUTHORIZATION_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindUnavailable   Kind = "UNAVAILABLE"
	KindAttemptLimit  Kind = "ATTEMPT_LIMIT_EXCEEDED"
	KindImport        Kind = "IMPORT_ERROR"
	KindInternal      Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Unavailable(format string, args ...any) *Error {
	return New(KindUnavailable, format, args...)
}

func AttemptLimit(format string, args ...any) *Error {
	return New(KindAttemptLimit, format, args...)
}

func Import(format string, args ...any) *Error {
	return New(KindImport, format, args...)
}

// KindOf reports the business kind of err, or KindInternal when err carries
// none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human readable part of a business error.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
