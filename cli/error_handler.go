package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/exports/errors"
)

// ErrorHandler provides user-friendly hints for coded errors
type ErrorHandler struct {
	Verbose bool
	out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		out:     os.Stderr,
	}
}

// WithWriter redirects the handler's output.
func (h *ErrorHandler) WithWriter(w io.Writer) *ErrorHandler {
	h.out = w
	return h
}

// Handle prints a hint for the error's code and returns the error unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.out, "Configuration file not found. Pass --config or create exports.yml.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.out, "Check the file against 'exports config schema'.\n")

	case errors.ErrCodeRecordNotFound:
		fmt.Fprintf(h.out, "Run 'exports list' to see the loaded export ids.\n")

	case errors.ErrCodeNoTask:
		fmt.Fprintf(h.out, "Only exports with an emailed export can be regenerated.\n")

	case errors.ErrCodeToggleInFlight:
		fmt.Fprintf(h.out, "Wait for the previous toggle to finish and try again.\n")

	case errors.ErrCodeTransport, errors.ErrCodeMalformedResponse:
		fmt.Fprintf(h.out, "The export server could not be reached or answered unexpectedly. Check server.base_url.\n")

	case errors.ErrCodeRejected:
		fmt.Fprintf(h.out, "The export server refused the request. Check server.csrf_token and your permissions.\n")

	case errors.ErrCodePollExhausted:
		fmt.Fprintf(h.out, "Progress polling gave up. Raise poll.max_retries or regenerate again later.\n")
	}

	if h.Verbose {
		if exportErr, ok := err.(*errors.ExportError); ok {
			fmt.Fprintf(h.out, "\nError details:\n%s\n", exportErr.ToJSON())
		}
	}
	return err
}
