package undo

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/reflectx"
)

// ErrorCode categorizes revert/apply failures.
type ErrorCode string

const (
	// ErrCodeUnresolvableIdentity indicates the resolved identity does not
	// exist and could not be recreated.
	ErrCodeUnresolvableIdentity ErrorCode = "UNRESOLVABLE_IDENTITY"

	// ErrCodeUnreconstructibleValue indicates a stored type-erased value could
	// not be turned back into a value of its kind.
	ErrCodeUnreconstructibleValue ErrorCode = "UNRECONSTRUCTIBLE_VALUE"

	// ErrCodeWriteFailed indicates the world rejected a write.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Error is returned by Change.Revert and Change.Apply. It never aborts the
// session: the chain logs it and the user simply gets less back than expected.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID is the resolved identity the change tried to act on.
	ID ident.ID

	// Kind is the value kind involved, if any.
	Kind reflect.Type

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (id=%s", e.Code, e.Message, e.ID)
	if e.Kind != nil {
		msg += ", kind=" + reflectx.KindName(e.Kind)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newUnresolvableError(id ident.ID, kind reflect.Type) *Error {
	return &Error{
		Code:    ErrCodeUnresolvableIdentity,
		Message: "entity does not exist and cannot be recovered",
		ID:      id,
		Kind:    kind,
	}
}

func newUnreconstructibleError(id ident.ID, kind reflect.Type, err error) *Error {
	return &Error{
		Code:    ErrCodeUnreconstructibleValue,
		Message: "stored value cannot be reconstructed",
		ID:      id,
		Kind:    kind,
		Err:     err,
	}
}

func newWriteError(id ident.ID, kind reflect.Type, err error) *Error {
	return &Error{
		Code:    ErrCodeWriteFailed,
		Message: "world rejected write",
		ID:      id,
		Kind:    kind,
		Err:     err,
	}
}

// IsUnresolvable returns true if err is, or wraps, an unresolvable identity error.
func IsUnresolvable(err error) bool {
	return hasCode(err, ErrCodeUnresolvableIdentity)
}

// IsUnreconstructible returns true if err is, or wraps, an unreconstructible value error.
func IsUnreconstructible(err error) bool {
	return hasCode(err, ErrCodeUnreconstructibleValue)
}

func hasCode(err error, code ErrorCode) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}
