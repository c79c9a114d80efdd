// Package apperror classifies business failures so the handler layer can map
// them to HTTP status codes without inspecting error strings. Ownership
// failures are reported as NotFound on read paths: a resource that exists but
// belongs to someone else is indistinguishable from one that does not exist.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	BadRequest
	Unauthorized
	Forbidden
	Conflict
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// Message is the caller-facing text, without any wrapped cause attached.
func (e *Error) Message() string { return e.msg }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap keeps the cause reachable through errors.Is/As while presenting msg to
// the caller.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func NotFoundf(format string, args ...any) *Error     { return New(NotFound, format, args...) }
func BadRequestf(format string, args ...any) *Error   { return New(BadRequest, format, args...) }
func Unauthorizedf(format string, args ...any) *Error { return New(Unauthorized, format, args...) }
func Forbiddenf(format string, args ...any) *Error    { return New(Forbidden, format, args...) }
func Conflictf(format string, args ...any) *Error     { return New(Conflict, format, args...) }

// KindOf reports the classification of err, Internal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Internal
}

// Status maps the error's kind to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns text safe to show the caller. Unclassified failures get a
// generic message so internals never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "internal server error"
}
