package service

import (
	"errors"
	"fmt"
)

// Kind classifies service errors for the transport layer
type Kind int

const (
	KindInternal Kind = iota
	// KindValidationConflict marks a duplicate organization name, namespace or email
	KindValidationConflict
	// KindAuthenticationFailure marks bad credentials or an invalid or stale token
	KindAuthenticationFailure
	KindNotFound
	// KindStoreInconsistency marks a registry record and namespace left out of sync
	KindStoreInconsistency
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindValidationConflict:
		return "validation_conflict"
	case KindAuthenticationFailure:
		return "authentication_failure"
	case KindNotFound:
		return "not_found"
	case KindStoreInconsistency:
		return "store_inconsistency"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is returned by every service operation that fails.
// Message is safe to show to clients; Err is the cause and is only logged.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrConflict     = &Error{Kind: KindValidationConflict}
	ErrUnauthorized = &Error{Kind: KindAuthenticationFailure}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInconsistent = &Error{Kind: KindStoreInconsistency}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal when err is not a service error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
