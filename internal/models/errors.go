package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation_error"
	KindConflict   ErrorKind = "conflict"
	KindAuth       ErrorKind = "unauthorized"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindStorage    ErrorKind = "storage_error"
)

// Error is a domain failure that the HTTP layer renders with a status code
// derived from Kind. Details is optional (per-field validation messages).
type Error struct {
	Kind    ErrorKind
	Message string
	Details any
}

func (e *Error) Error() string { return e.Message }

func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newErr(KindValidation, format, args...) }
func Conflict(format string, args ...any) *Error   { return newErr(KindConflict, format, args...) }
func Unauthorized(format string, args ...any) *Error {
	return newErr(KindAuth, format, args...)
}
func Forbidden(format string, args ...any) *Error { return newErr(KindForbidden, format, args...) }
func NotFound(format string, args ...any) *Error  { return newErr(KindNotFound, format, args...) }
func Storage(format string, args ...any) *Error   { return newErr(KindStorage, format, args...) }

// KindOf reports the kind of a domain error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind is shorthand used mostly by tests.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var (
	ErrInvalidCredentials = Unauthorized("invalid email or password")
	ErrTopicClosed        = Conflict("topic is closed")
)
