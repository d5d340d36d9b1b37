// Package failure defines the typed error kinds surfaced by deal operations.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can pick the right recovery path.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindUploadURL       Kind = "upload_url"
	KindDispatch        Kind = "dispatch"
	KindInternal        Kind = "internal"
)

// Error is the typed failure returned by every public operation.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for validation failures.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare kind sentinels below, e.g. errors.Is(err, failure.ErrForbidden).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// KindOf returns the kind of err, or KindInternal when err carries no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Unauthenticated reports a missing, malformed, or expired session token.
func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "authentication required"}
}

// Forbidden reports a valid token that lacks the required capability.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "insufficient permissions"}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func UploadURL(err error) *Error {
	return &Error{Kind: KindUploadURL, Message: "could not create upload url", Err: err}
}

func Dispatch(err error) *Error {
	return &Error{Kind: KindDispatch, Message: "notification delivery failed", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// Kinds used for sentinel comparisons with errors.Is.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUploadURL       = &Error{Kind: KindUploadURL}
	ErrDispatch        = &Error{Kind: KindDispatch}
)
