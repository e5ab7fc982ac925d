package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeRateLimited Code = 11
	CodeUnavailable Code = 12
	CodeUnsupported Code = 13
	CodeDataFormat  Code = 17
	CodeTimeout     Code = 18
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if e, ok := As(err); ok {
		return int(e.Code)
	}
	return int(CodeInternal)
}

// TypeName maps an error to the string code exposed to callers.
func TypeName(err error) string {
	e, ok := As(err)
	if !ok {
		return "internal_error"
	}
	switch e.Code {
	case CodeUsage:
		return "usage_error"
	case CodeRateLimited:
		return "rate_limited"
	case CodeUnavailable:
		return "network_error"
	case CodeUnsupported:
		return "unsupported"
	case CodeDataFormat:
		return "data_format_error"
	case CodeTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}

// FromTypeName is the inverse of TypeName. Unknown names map to CodeInternal.
func FromTypeName(name string) Code {
	switch name {
	case "usage_error":
		return CodeUsage
	case "rate_limited":
		return CodeRateLimited
	case "network_error":
		return CodeUnavailable
	case "unsupported":
		return CodeUnsupported
	case "data_format_error":
		return CodeDataFormat
	case "timeout":
		return CodeTimeout
	default:
		return CodeInternal
	}
}
