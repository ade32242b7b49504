// Package apperr defines the business error taxonomy shared by the exam
// lifecycle service and the HTTP surface. Every error carries a stable Kind
// plus a human-readable message; callers branch on the kind, never on the
// message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable business error category.
type Kind string

const (
	// KindNotFound — the referenced exam or attempt does not exist.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidState — the operation is illegal for the current status.
	KindInvalidState Kind = "INVALID_STATE"
	// KindConflict — duplicate publish or a concurrent active attempt.
	KindConflict Kind = "CONFLICT"
	// KindLimitExceeded — the student has used all permitted attempts.
	KindLimitExceeded Kind = "LIMIT_EXCEEDED"
	// KindForbidden — the actor does not own the resource.
	KindForbidden Kind = "FORBIDDEN"
	// KindUpstreamUnavailable — messaging timeout or transport failure.
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	// KindServiceDegraded — partial success; the caller should retry the
	// missing part, not the whole operation.
	KindServiceDegraded Kind = "SERVICE_DEGRADED"
)

// Error is a business error with a kind, message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a business error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a business error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts the *Error from an error chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindOf extracts the business kind from an error chain. Returns an empty
// Kind when the chain carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a client may reasonably retry the operation.
// Business-rule outcomes are final; only transport-class failures retry.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamUnavailable, KindServiceDegraded:
		return true
	default:
		return false
	}
}
