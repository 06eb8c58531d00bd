package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error carrying a stable code
// that batch summaries and HTTP handlers can dispatch on.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving an existing code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	var appErr *AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Analysis-pipeline error codes. The first five form the core taxonomy:
// insufficient or degenerate data is non-fatal and skips the analyzer,
// upstream failures abort one entity but never a batch, stale versions are
// retried, and exhausted resolution degrades to a baseline-only forecast.
const (
	CodeInsufficientData     = "INSUFFICIENT_DATA"
	CodeDegenerateInput      = "DEGENERATE_INPUT"
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeStaleVersionConflict = "STALE_VERSION_CONFLICT"
	CodeResolutionExhausted  = "RESOLUTION_EXHAUSTED"

	CodeConfigInvalid = "CONFIG_INVALID"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInternalError = "INTERNAL_ERROR"
)

// Common error constructors

func InsufficientData(message string) *AppError {
	return New(CodeInsufficientData, message)
}

func DegenerateInput(message string) *AppError {
	return New(CodeDegenerateInput, message)
}

func UpstreamUnavailable(source string, cause error) *AppError {
	return &AppError{
		Code:    CodeUpstreamUnavailable,
		Message: fmt.Sprintf("%s unavailable", source),
		Cause:   cause,
	}
}

func StaleVersionConflict(message string) *AppError {
	return New(CodeStaleVersionConflict, message)
}

func ResolutionExhausted(message string) *AppError {
	return New(CodeResolutionExhausted, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
