// Package errors provides structured CLI error types for agent-yes.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across the CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitSuccess   = 0   // Successful execution
	ExitGeneral   = 1   // General error
	ExitConfig    = 4   // Configuration error
	ExitTimeout   = 5   // Idle/wall-clock timeout reached
	ExitExecution = 6   // Assistant process failure
	ExitUserAbort = 130 // Ctrl-C before the assistant was ready
	ExitUsage     = 64  // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// UnknownAssistant returns an error for a selector that matches no catalog
// entry.
func UnknownAssistant(name string, known []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unknown assistant: %s", name),
		Hint:    fmt.Sprintf("Supported assistants: %s", strings.Join(known, ", ")),
		Code:    ExitUsage,
	}
}

// BinaryNotFound returns an error when the assistant's underlying binary
// isn't on PATH.
func BinaryNotFound(binary string, installHint string) *CLIError {
	hint := fmt.Sprintf("Install the %s CLI and make sure it is on your PATH", binary)
	if installHint != "" {
		hint = installHint
	}

	return &CLIError{
		Message: fmt.Sprintf("%s not found on PATH", binary),
		Hint:    hint,
		Code:    ExitConfig,
	}
}

// InvalidTimeout returns an error for an unparsable --timeout value.
func InvalidTimeout(raw string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid timeout: %q", raw),
		Hint:    `Use a bare integer (seconds) or a duration like "60s", "1m", "5m"`,
		Code:    ExitUsage,
	}
}

// InvalidAutoMode returns an error for an unrecognized --auto value.
func InvalidAutoMode(raw string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid --auto value: %q", raw),
		Hint:    `Use "yes" or "no"`,
		Code:    ExitUsage,
	}
}

// ConfigParseFailed returns an error for a malformed cascading config file.
// Per the cascading overlay's non-fatal design, a parse failure is normally
// only warned about (the root command logs it, doctor reports it as a
// warning); this constructor is for a caller that treats it as a hard
// failure.
func ConfigParseFailed(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to parse config file: %s", path),
		Hint:    "Fix the syntax error or remove the file; cascading config files are optional",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// SpawnFailed returns an error when the assistant binary could not be
// exec'd under a PTY at all (distinct from the assistant process itself
// exiting non-zero once running).
func SpawnFailed(binary string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to start %s", binary),
		Hint:    "Check the binary is installed and executable",
		Cause:   cause,
		Code:    ExitExecution,
	}
}

// QueueLockHeld returns an error when --queue finds an existing lock file
// for the same workspace.
func QueueLockHeld(lockPath string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Another agent-yes --queue run holds the lock: %s", lockPath),
		Hint:    "Wait for it to finish, or remove the lock file if it was left behind by a crash",
		Code:    ExitGeneral,
	}
}
