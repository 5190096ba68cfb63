// Package errors provides the stable error codes shared by the sync client
// and server, and helpers for reporting CLI errors.
//
// Request-level codes reject a whole HTTP request. Operation-level codes are
// reported per operation inside a sync response and never abort a batch.
package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitsync/internal/logger"
)

// Request-level codes.
const (
	CodeValidation   = "VALIDATION_ERROR" // Malformed request body or query
	CodeUnauthorized = "UNAUTHORIZED"     // Missing or invalid bearer token
	CodeNotFound     = "NOT_FOUND"        // Resource does not exist for this user
	CodeRateLimited  = "RATE_LIMITED"     // Too many requests for this user
	CodeInternal     = "INTERNAL"         // Unexpected server failure
)

// Operation-level codes.
const (
	CodeInvalidPayload = "INVALID_PAYLOAD" // Payload does not match its type's shape
	CodeHabitNotFound  = "HABIT_NOT_FOUND" // Referenced habit missing or owned by another user
	CodeUnknownOpType  = "UNKNOWN_OP_TYPE" // Operation type has no handler
	CodeApplyFailed    = "APPLY_FAILED"    // Unexpected failure while applying
)

// CodedError wraps an error with a stable error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// Wrap creates a CodedError that keeps cause for errors.Is/As.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{Code: code, Message: message, Cause: cause}
}

// GetCode extracts the code from err, or "" if err carries none.
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
