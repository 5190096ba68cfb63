package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "coded error",
			err:      New(CodeHabitNotFound, "Habit h1 not found"),
			expected: "Error: HABIT_NOT_FOUND: Habit h1 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("%d operation(s) failed", 3)
	if got != "Error: 3 operation(s) failed" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestCodedErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("apply: %w", Wrap(CodeApplyFailed, "insert failed", cause))

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable with errors.Is")
	}
	if got := GetCode(err); got != CodeApplyFailed {
		t.Errorf("GetCode() = %q, want %q", got, CodeApplyFailed)
	}
	if got := GetCode(cause); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}
