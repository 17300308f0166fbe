package core

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures. Callers compare kinds, never messages.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindIOFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against *Error values.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrIOFailure  = &Error{Kind: KindIOFailure}
)

// Error carries a machine-checkable Kind plus a message meant for the end
// user of the chat front-end.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// ValidationError reports a missing or malformed field on append.
func ValidationError(op string, err error) *Error {
	return &Error{
		Kind:    KindValidation,
		Op:      op,
		Message: fmt.Sprintf("ERROR: Invalid transaction - %v", err),
		Err:     err,
	}
}

// IOError reports that the backing store could not be written or read.
func IOError(op string, err error) *Error {
	return &Error{
		Kind:    KindIOFailure,
		Op:      op,
		Message: fmt.Sprintf("ERROR: Failed to save - %v", err),
		Err:     err,
	}
}

// NotFoundError reports a ledger that has never been initialized.
func NotFoundError(op, what string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Message: fmt.Sprintf("Error: '%s' not found.", what),
	}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Operation names used in Error.Op.
const (
	OpAppend = "append"
	OpLoad   = "load"
)
