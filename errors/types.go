package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Record store errors
	ErrCodeRecordNotFound  ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeDuplicateRecord ErrorCode = "DUPLICATE_RECORD"
	ErrCodeNoTask          ErrorCode = "NO_TASK"

	// Action errors
	ErrCodeToggleInFlight ErrorCode = "TOGGLE_IN_FLIGHT"
	ErrCodeRejected       ErrorCode = "REJECTED"
	ErrCodePollExhausted  ErrorCode = "POLL_EXHAUSTED"

	// Server communication errors
	ErrCodeTransport         ErrorCode = "TRANSPORT"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// ExportError represents a structured error with context
type ExportError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *ExportError) WithDetail(key string, value interface{}) *ExportError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *ExportError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new ExportError
func New(code ErrorCode, message string) *ExportError {
	return &ExportError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an ExportError
func Wrap(err error, code ErrorCode, message string) *ExportError {
	return &ExportError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific ExportError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	exportErr, ok := err.(*ExportError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if exportErr.Code == code {
		return true
	}
	if exportErr.Cause != nil {
		return Is(exportErr.Cause, code)
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	exportErr, ok := err.(*ExportError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return exportErr.Code
}
