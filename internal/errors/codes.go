// Package errors defines the coded error type used on the engine's degraded paths.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for core operations.
type ErrorCode string

const (
	// ErrCodeSourceUnavailable indicates an upstream snapshot could not be read.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// ErrCodePersistenceFailed indicates a blob write or delete failed.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	// ErrCodeCorruptBlob indicates a persisted blob could not be decoded.
	ErrCodeCorruptBlob ErrorCode = "CORRUPT_BLOB"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates a requested item does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// CoreError represents a structured error for core operations.
type CoreError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *CoreError) WithContext(key string, value any) *CoreError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// SourceUnavailable creates a source unavailable error.
func SourceUnavailable(source string, cause error) *CoreError {
	return &CoreError{
		Code:    ErrCodeSourceUnavailable,
		Message: fmt.Sprintf("%s source unavailable", source),
		Cause:   cause,
	}
}

// PersistenceFailed creates a persistence failure for a blob key.
func PersistenceFailed(key string, cause error) *CoreError {
	return (&CoreError{Code: ErrCodePersistenceFailed, Message: "persist blob", Cause: cause}).WithContext("key", key)
}

// CorruptBlob creates a corrupt blob error for a blob key.
func CorruptBlob(key string, cause error) *CoreError {
	return (&CoreError{Code: ErrCodeCorruptBlob, Message: "decode blob", Cause: cause}).WithContext("key", key)
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *CoreError {
	return &CoreError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *CoreError {
	return &CoreError{Code: ErrCodeNotFound, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *CoreError {
	return &CoreError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var coreErr *CoreError
	if stderrors.As(err, &coreErr) {
		return coreErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a CoreError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var coreErr *CoreError
	if stderrors.As(err, &coreErr) {
		return coreErr.Code
	}
	return defaultCode
}
