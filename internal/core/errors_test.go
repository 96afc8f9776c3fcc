package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := &Error{Code: "EMPTY_INPUT", Message: "bar series is empty"}
	if got := err.Error(); got != "[EMPTY_INPUT] bar series is empty" {
		t.Errorf("Error() = %q", got)
	}
}

func TestError_WrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("missing fields: ma200")
	wrapped := WrapError(ErrMissingField, cause)

	if !errors.Is(wrapped, ErrMissingField) {
		t.Error("wrapped error should match its base via errors.Is")
	}
	if !strings.Contains(wrapped.Error(), "ma200") {
		t.Errorf("wrapped error should carry cause text, got %q", wrapped.Error())
	}
	if errors.Unwrap(wrapped) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	a := &Error{Code: "BAD_INPUT", Message: "one message"}
	if !errors.Is(a, ErrBadInput) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(a, ErrEmptyInput) {
		t.Error("errors with different codes should not match")
	}
}
