// Package errors carries the failure codes of the task forest.
//
// Store backends report lookups that miss with TaskNotFound and broken
// forests with ErrCodeIntegrity. The service passes coded errors through
// unchanged and folds everything else into ErrCodeStoreFailure with
// FromStore, so the HTTP layer only ever switches on a Code.
//
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // 404
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers and for the HTTP status mapping.
type Code string

const (
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidReservedID Code = "INVALID_RESERVED_ID"

	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeParentNotFound Code = "PARENT_NOT_FOUND"
	ErrCodeUserNotFound   Code = "USER_NOT_FOUND"

	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// ErrCodeIntegrity marks a forest that violates the single-parent rule.
	ErrCodeIntegrity    Code = "INTEGRITY"
	ErrCodeStoreFailure Code = "STORE_FAILURE"
)

// Error pairs a Code with a client-safe message. Cause, when set, is for
// logs only and never reaches a response body.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// TaskNotFound is the miss reported by store lookups.
func TaskNotFound(id string) *Error {
	return New(ErrCodeNotFound, "task %s not found", id)
}

// ReservedID rejects a container id used where a task id is expected.
func ReservedID(id string) *Error {
	return New(ErrCodeInvalidReservedID, "%s is not allowed", id)
}

// FromStore returns err untouched when it already carries a code, and wraps
// it as a store failure otherwise. A nil err stays nil.
func FromStore(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if GetCode(err) != "" {
		return err
	}
	return Wrap(ErrCodeStoreFailure, err, format, args...)
}

// Is compares code with the outermost coded error in err's chain.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the outermost code in err's chain, or "" if there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage is the text safe to show a client: the message of a coded
// error, or err.Error() for anything else.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
