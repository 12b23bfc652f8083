// Package apperr defines the typed error taxonomy shared by the task
// lifecycle, authorization and query layers. Callers classify outcomes
// with errors.As/KindOf instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers missing or malformed input fields.
	KindValidation
	// KindNotFound covers absent or soft-deleted entities.
	KindNotFound
	// KindForbidden covers authorization denials.
	KindForbidden
	// KindConflict covers operations incompatible with current state.
	KindConflict
	// KindDependency covers repository or collaborator failures.
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	}
	return "unknown"
}

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

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf extracts the taxonomy kind of err, or KindUnknown for errors
// produced outside this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err classifies as the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
