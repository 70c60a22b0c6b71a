package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Catalog lookup errors
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrMultipleMatches ErrorCode = "MULTIPLE_MATCHES"

	// Connection and transport errors
	ErrConnection       ErrorCode = "CONNECTION"
	ErrTransientNetwork ErrorCode = "TRANSIENT_NETWORK"
	ErrRequestFailed    ErrorCode = "REQUEST_FAILED"

	// Repository write errors
	ErrWriteConflict ErrorCode = "WRITE_CONFLICT"
	ErrWriteRejected ErrorCode = "WRITE_REJECTED"

	// Structural validation errors
	ErrNestedDirectory  ErrorCode = "NESTED_DIRECTORY"
	ErrEmptyDirectory   ErrorCode = "EMPTY_DIRECTORY"
	ErrNoFilesFound     ErrorCode = "NO_FILES_FOUND"
	ErrUnsupportedFile  ErrorCode = "UNSUPPORTED_FILE_TYPE"
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Batch errors
	ErrBatchConflict ErrorCode = "BATCH_CONFLICT"

	// Configuration errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// CascflowError represents a structured error with code and details
type CascflowError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *CascflowError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CascflowError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface, matching by code
func (e *CascflowError) Is(target error) bool {
	var targetErr *CascflowError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new CascflowError with the given code and message
func New(code ErrorCode, message string) *CascflowError {
	return &CascflowError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new CascflowError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *CascflowError {
	return &CascflowError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a CascflowError
func Wrap(err error, code ErrorCode, message string) *CascflowError {
	if err == nil {
		return nil
	}
	return &CascflowError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *CascflowError {
	if err == nil {
		return nil
	}
	return &CascflowError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *CascflowError) WithDetail(key string, value interface{}) *CascflowError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsCode reports whether any error in err's chain is a CascflowError
// carrying the given code
func IsCode(err error, code ErrorCode) bool {
	var cfErr *CascflowError
	if errors.As(err, &cfErr) {
		return cfErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, returning ErrUnknown
// for errors that did not originate in this package
func GetCode(err error) ErrorCode {
	var cfErr *CascflowError
	if errors.As(err, &cfErr) {
		return cfErr.Code
	}
	return ErrUnknown
}
