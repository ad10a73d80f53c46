package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the lifecycle core can surface
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindIllegalTransition ErrorKind = "illegal_transition"
	KindConflict          ErrorKind = "conflict"
	KindDuplicate         ErrorKind = "duplicate"
	KindAuth              ErrorKind = "auth"
	KindNetwork           ErrorKind = "network"
	KindServer            ErrorKind = "server"
	KindNotFound          ErrorKind = "not_found"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrDuplicate         = &Error{Kind: KindDuplicate}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrServer            = &Error{Kind: KindServer}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

// Error is the single error type crossing the repository and service boundaries
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can write errors.Is(err, types.ErrConflict)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an error of the given kind
func NewError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError builds an error of the given kind around a cause
func WrapError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validationf is shorthand for the most common client-side failure
func Validationf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may re-invoke the same operation.
// Only transport and 5xx failures qualify; everything else needs a fix or a
// refetch first.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}
