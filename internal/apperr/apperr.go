package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Service methods return errors wrapping exactly one of
// these so callers can branch with errors.Is without string matching.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("authorization error")
	ErrInvalidState  = errors.New("invalid state")
	ErrLedger        = errors.New("ledger error")
)

// Error carries a kind sentinel plus a human-readable message and an
// optional underlying cause.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Code returns the wire identifier for the error's kind, used by the API
// layer in ErrorResponse.Code.
func (e *Error) Code() string {
	switch e.kind {
	case ErrValidation:
		return "VALIDATION_ERROR"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrAuthorization:
		return "AUTHORIZATION_ERROR"
	case ErrInvalidState:
		return "INVALID_STATE"
	case ErrLedger:
		return "LEDGER_ERROR"
	}
	return "INTERNAL_ERROR"
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, fmt.Sprintf(format, args...))
}

func Authorization(format string, args ...interface{}) *Error {
	return newError(ErrAuthorization, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(ErrInvalidState, fmt.Sprintf(format, args...))
}

func Ledger(msg string, cause error) *Error {
	return &Error{kind: ErrLedger, msg: msg, cause: cause}
}
