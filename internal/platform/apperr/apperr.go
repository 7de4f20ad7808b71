// Package apperr defines the error kinds surfaced by the domain services and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers. Storage failures that are not one of
// the domain kinds are Internal.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindState
	KindNotFound
	KindForbidden
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConsistency:
		return "consistency"
	default:
		return "internal"
	}
}

// Error is a classified domain error with a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string

	parent *Error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Is matches the sentinel an error was derived from with Withf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	for p := e.parent; p != nil; p = p.parent {
		if p == t {
			return true
		}
	}
	return false
}

// Withf returns a copy of e whose message carries detail. The copy still
// satisfies errors.Is(copy, e).
func (e *Error) Withf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message + ": " + fmt.Sprintf(format, args...),
		parent:  e,
	}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// Shared sentinels.
var (
	ErrForbidden       = New(KindForbidden, "FORBIDDEN", "actor is not allowed to perform this action")
	ErrInvalidInput    = New(KindValidation, "INVALID_INPUT", "invalid input")
	ErrUnauthenticated = New(KindForbidden, "UNAUTHENTICATED", "no authenticated actor")
)
