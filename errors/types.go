package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Bridge errors
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeChannelUnknown    ErrorCode = "CHANNEL_UNKNOWN"
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"

	// File errors
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"

	// Execution errors
	ErrCodeSpawnFailed       ErrorCode = "SPAWN_FAILED"
	ErrCodeExecutionNotFound ErrorCode = "EXECUTION_NOT_FOUND"

	// Watcher errors
	ErrCodeWatcherFault ErrorCode = "WATCHER_FAULT"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// HearthError represents a structured error with context
type HearthError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *HearthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HearthError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *HearthError) WithDetail(key string, value interface{}) *HearthError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *HearthError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new HearthError
func New(code ErrorCode, message string) *HearthError {
	return &HearthError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a HearthError
func Wrap(err error, code ErrorCode, message string) *HearthError {
	return &HearthError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific HearthError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	hearthErr, ok := err.(*HearthError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return hearthErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	hearthErr, ok := err.(*HearthError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return hearthErr.Code
}
