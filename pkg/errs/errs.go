// Package errs defines the error kinds shared by every lifecycle component.
//
// Domain packages declare sentinel errors with New and compare them with
// errors.Is. The HTTP edge maps the kind to a status code without knowing
// about individual domains.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it.
type Kind string

const (
	KindValidation               Kind = "validation_error"
	KindNotFound                 Kind = "not_found"
	KindIllegalTransition        Kind = "illegal_transition"
	KindInvalidState             Kind = "invalid_state"
	KindCapacityExceeded         Kind = "capacity_exceeded"
	KindBlackoutDate             Kind = "blackout_date"
	KindCancellationWindowClosed Kind = "cancellation_window_closed"
	KindRevisionLimitExceeded    Kind = "revision_limit_exceeded"
	KindConcurrencyConflict      Kind = "concurrency_conflict"
	KindDependencyUnavailable    Kind = "dependency_unavailable"
	KindForbidden                Kind = "forbidden"
	KindInternal                 Kind = "internal_error"
)

// Retryable reports whether an operation failing with this kind may be re-run as a whole.
func (k Kind) Retryable() bool {
	return k == KindConcurrencyConflict || k == KindDependencyUnavailable
}

type kinded interface {
	ErrorKind() Kind
	ErrorCode() string
}

// Error is a typed lifecycle error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string

	cause error
}

// New returns a sentinel error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) ErrorKind() Kind   { return e.Kind }
func (e *Error) ErrorCode() string { return e.Code }
func (e *Error) Unwrap() error     { return e.cause }

// Is matches any error carrying the same kind and code, so detailed copies
// produced by Withf still compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithField returns a copy of e pointing at the offending input field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Wrap attaches cause to a copy of e.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// Validation builds an ad-hoc validation error for a single field.
func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Field: field}
}

// IllegalTransitionError names the state pair that was rejected.
type IllegalTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal %s transition from %s to %s", e.Entity, e.From, e.To)
}

func (e *IllegalTransitionError) ErrorKind() Kind   { return KindIllegalTransition }
func (e *IllegalTransitionError) ErrorCode() string { return "illegal_transition" }

// Is lets callers match any illegal transition with errors.Is(err, ErrIllegalTransition).
func (e *IllegalTransitionError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindIllegalTransition
}

// NewIllegalTransition returns an IllegalTransitionError.
func NewIllegalTransition(entity, from, to string) error {
	return &IllegalTransitionError{Entity: entity, From: from, To: to}
}

var (
	ErrIllegalTransition     = New(KindIllegalTransition, "illegal_transition", "illegal transition")
	ErrConcurrencyConflict   = New(KindConcurrencyConflict, "concurrency_conflict", "entity was modified concurrently")
	ErrDependencyUnavailable = New(KindDependencyUnavailable, "dependency_unavailable", "dependency unavailable")
	ErrForbidden             = New(KindForbidden, "forbidden", "forbidden")
)

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// CodeOf returns the machine code of err, or "internal_error".
func CodeOf(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorCode()
	}
	return string(KindInternal)
}

// FieldOf returns the input field attached to a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
