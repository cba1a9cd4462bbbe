// Package apperr defines the typed errors services return. Handlers never
// pick status codes themselves; they map the error kind through HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindUnauthorized
	KindBadRequest
	KindInternal
)

// Error is a domain error carrying a Kind, an optional operation name,
// an optional cause, and optional response details.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates an error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error with an underlying cause preserved for errors.Is/As.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp tags the error with the failing operation.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// GetKind extracts the kind from anywhere in the error chain, KindUnknown
// when no *Error is present.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
