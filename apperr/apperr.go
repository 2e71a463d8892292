// Package apperr defines the failure taxonomy shared by the checkout core.
// Domain code returns *Error values; the HTTP boundary maps them to statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid argument"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindGateway:
		return "gateway error"
	default:
		return "internal error"
	}
}

// Error is a typed domain failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality against the bare sentinels below, so callers can
// write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrGateway         = &Error{Kind: KindGateway}
	ErrInternal        = &Error{Kind: KindInternal}
)

// NotFound names the entity that could not be resolved, e.g. NotFound("product").
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Msg: entity + " not found"}
}

func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Msg: msg} }
func InvalidArgument(msg string) *Error { return &Error{Kind: KindInvalidArgument, Msg: msg} }
func Unauthorized(msg string) *Error    { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Msg: msg} }

// Gateway marks a payment-provider transport failure. These are retryable.
func Gateway(msg string, cause error) *Error {
	return &Error{Kind: KindGateway, Msg: msg, Err: cause}
}

// Internal wraps an unexpected failure (store outage, encoding bug).
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response status used by the handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show a client. Internal failures are
// reported generically.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.String()
	}
	return "An unexpected error occurred. Please try again later."
}
