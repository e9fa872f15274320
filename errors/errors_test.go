package errors

import (
	"fmt"
	"testing"
)

func TestExportError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeRecordNotFound, "record not found")
	if err.Code != ErrCodeRecordNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeRecordNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeTransport, "poll failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeTransport) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeRecordNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("exportId", "abc").WithDetail("status", 502)
	if detailed.Details["exportId"] != "abc" {
		t.Error("WithDetail should add details")
	}
}

func TestIsLooksThroughNestedCauses(t *testing.T) {
	inner := HTTPStatus("task progress", 503)
	outer := PollExhausted("e1", 4, inner)

	if !Is(outer, ErrCodePollExhausted) {
		t.Error("outer code should match")
	}
	if !Is(outer, ErrCodeTransport) {
		t.Error("nested cause code should match")
	}
	if GetCode(fmt.Errorf("wrapped: %w", outer)) != ErrCodePollExhausted {
		t.Error("GetCode should unwrap fmt wrappers")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := RecordNotFound("42")
	if err.Code != ErrCodeRecordNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeRecordNotFound, err.Code)
	}
	if err.Details["exportId"] != "42" {
		t.Error("RecordNotFound should include exportId detail")
	}

	err = HTTPStatus("toggle", 500)
	if err.Code != ErrCodeTransport {
		t.Errorf("expected code %s, got %s", ErrCodeTransport, err.Code)
	}
	if err.Details["status"] != 500 {
		t.Error("HTTPStatus should include status detail")
	}
}
