// Package apperror defines the typed failures returned by the workflow
// packages. Callers match them with errors.Is against the Err* sentinels or
// extract the context with errors.As.
package apperror

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies a workflow failure
type Kind string

// Error kinds
const (
	KindPermissionDenied  Kind = "permission_denied"
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindAlreadyApplied    Kind = "already_applied"
	KindAlreadyReviewed   Kind = "already_reviewed"
	KindMissingCV         Kind = "missing_cv"
	KindExpired           Kind = "expired"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrAlreadyApplied    = &Error{Kind: KindAlreadyApplied}
	ErrAlreadyReviewed   = &Error{Kind: KindAlreadyReviewed}
	ErrMissingCV         = &Error{Kind: KindMissingCV}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error carries the kind plus the minimal context a caller needs to decide
// what to do next. Err is never shown to clients.
type Error struct {
	Kind     Kind
	Message  string
	EntityID uuid.UUID
	State    string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithState attaches the entity's current state
func (e *Error) WithState(state fmt.Stringer) *Error {
	e.State = state.String()
	return e
}

// New builds an error of the given kind about entity id
func New(kind Kind, id uuid.UUID, format string, args ...any) *Error {
	return &Error{Kind: kind, EntityID: id, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied reports a failed ownership or role check
func PermissionDenied(id uuid.UUID, format string, args ...any) *Error {
	return New(KindPermissionDenied, id, format, args...)
}

// NotFound reports an absent or soft-deleted entity
func NotFound(id uuid.UUID, format string, args ...any) *Error {
	return New(KindNotFound, id, format, args...)
}

// InvalidTransition reports a requested state unreachable from current
func InvalidTransition(id uuid.UUID, current, requested fmt.Stringer) *Error {
	return New(KindInvalidTransition, id, "cannot move from %s to %s", current, requested).WithState(current)
}

// Validation reports malformed input
func Validation(format string, args ...any) *Error {
	return New(KindValidation, uuid.Nil, format, args...)
}

// Internal wraps a store failure. The cause is kept for logs only.
func Internal(err error, format string, args ...any) *Error {
	e := New(KindInternal, uuid.Nil, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
