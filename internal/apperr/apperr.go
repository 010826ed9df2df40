// Package apperr defines the error kinds the API distinguishes at its
// boundary. Business logic wraps failures into a kind once, at the point
// where the condition is detected; the HTTP layer maps kinds to status
// codes and never inspects raw storage or provider errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota // malformed or missing input
	KindNotFound
	KindAuth      // missing/invalid/expired credential
	KindForbidden // authenticated but not allowed
	KindConflict  // duplicate resource
	KindBusiness  // business rule violated (empty cart, insufficient stock)
	KindUpstream  // payment/SMS provider failure
)

type Error struct {
	Kind    Kind
	Message string // safe to surface to the caller
	Err     error  // underlying cause, logged but never serialized
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Business(message string) *Error   { return New(KindBusiness, message) }

func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Status maps an error to the HTTP status code the boundary should respond
// with. Unknown errors map to 500.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindBusiness:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message returns the caller-safe message for err, or a generic fallback
// for unexpected errors so internals never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
