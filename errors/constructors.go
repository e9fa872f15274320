package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *ExportError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *ExportError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// RecordNotFound creates an error for an export id the store does not hold
func RecordNotFound(id string) *ExportError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("export '%s' not found", id)).
		WithDetail("exportId", id)
}

// DuplicateRecord creates an error for an id that appears twice in one load
func DuplicateRecord(id string) *ExportError {
	return New(ErrCodeDuplicateRecord, fmt.Sprintf("export '%s' appears more than once", id)).
		WithDetail("exportId", id)
}

// NoTask creates an error for a record that has no emailed export attached
func NoTask(id string) *ExportError {
	return New(ErrCodeNoTask, fmt.Sprintf("export '%s' has no background task", id)).
		WithDetail("exportId", id)
}

// ToggleInFlight creates an error for a toggle issued while the previous one is outstanding
func ToggleInFlight(id string) *ExportError {
	return New(ErrCodeToggleInFlight, fmt.Sprintf("auto-rebuild toggle for '%s' is already in progress", id)).
		WithDetail("exportId", id)
}

// Rejected creates an error for an otherwise successful response that reported success=false
func Rejected(op, id string) *ExportError {
	return New(ErrCodeRejected, fmt.Sprintf("server rejected %s for '%s'", op, id)).
		WithDetail("operation", op).
		WithDetail("exportId", id)
}

// Transport creates a transport failure error
func Transport(op string, err error) *ExportError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("%s request failed", op)).
		WithDetail("operation", op)
}

// HTTPStatus creates a transport error for a non-success HTTP status
func HTTPStatus(op string, status int) *ExportError {
	return New(ErrCodeTransport, fmt.Sprintf("%s returned status %d", op, status)).
		WithDetail("operation", op).
		WithDetail("status", status)
}

// MalformedResponse creates an error for a response body that could not be decoded
func MalformedResponse(op string, err error) *ExportError {
	return Wrap(err, ErrCodeMalformedResponse, fmt.Sprintf("failed to decode %s response", op)).
		WithDetail("operation", op)
}

// PollExhausted creates an error for a polling cycle that gave up
func PollExhausted(id string, attempts int, err error) *ExportError {
	return Wrap(err, ErrCodePollExhausted, fmt.Sprintf("gave up polling '%s' after %d attempts", id, attempts)).
		WithDetail("exportId", id).
		WithDetail("attempts", attempts)
}
