package errors

import (
	stderrors "errors"
	"fmt"
)

// Process exit codes. Usage mistakes exit 2 so shell wrappers can tell
// them apart from conversion failures.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// Error codes for the conversion taxonomy.
const (
	CodeUsage          = "USAGE_ERROR"
	CodeSourceNotFound = "SOURCE_NOT_FOUND"
	CodeLoad           = "LOAD_ERROR"
	CodeSkipped        = "CLASSIFICATION_SKIPPED"
	CodeExport         = "EXPORT_ERROR"
)

// ConversionError represents a structured conversion failure
type ConversionError struct {
	ExitCode  int         `json:"exit_code"`
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Err       error       `json:"-"`
}

// Error implements the error interface
func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/errors.As chains
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// New creates a new ConversionError with the given parameters
func New(exitCode int, errorCode, message string) *ConversionError {
	return &ConversionError{
		ExitCode:  exitCode,
		ErrorCode: errorCode,
		Message:   message,
	}
}

// NewWithDetails creates a new ConversionError with additional details
func NewWithDetails(exitCode int, errorCode, message string, details interface{}) *ConversionError {
	return &ConversionError{
		ExitCode:  exitCode,
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	}
}

// Helper functions for specific error types

// Usage creates a usage error from a format string
func Usage(format string, args ...interface{}) *ConversionError {
	return New(ExitUsage, CodeUsage, fmt.Sprintf(format, args...))
}

// SourceNotFound creates an error for a missing input path
func SourceNotFound(path string) *ConversionError {
	return NewWithDetails(ExitFailure, CodeSourceNotFound, "source file not found", path)
}

// Load creates an error for an unreadable source
func Load(path string, err error) *ConversionError {
	e := NewWithDetails(ExitFailure, CodeLoad, fmt.Sprintf("failed to load %s", path), err.Error())
	e.Err = err
	return e
}

// LoadMalformed creates a load error for a structural shape violation
func LoadMalformed(path, reason string) *ConversionError {
	return NewWithDetails(ExitFailure, CodeLoad, fmt.Sprintf("malformed source %s: %s", path, reason), reason)
}

// Skipped creates the non-fatal per-channel classification failure.
// Details should carry the structural diagnostics for the channel so the
// operator can adapt the record without rerunning under a debugger.
func Skipped(channel string, details interface{}) *ConversionError {
	return NewWithDetails(0, CodeSkipped, fmt.Sprintf("channel %s has no usable numeric field", channel), details)
}

// Export creates an error for a failed destination write
func Export(dest string, err error) *ConversionError {
	e := NewWithDetails(ExitFailure, CodeExport, fmt.Sprintf("failed to export %s", dest), err.Error())
	e.Err = err
	return e
}

// IsCode reports whether err carries the given conversion error code
func IsCode(err error, code string) bool {
	var ce *ConversionError
	if stderrors.As(err, &ce) {
		return ce.ErrorCode == code
	}
	return false
}

// ExitCode maps an error to the process exit code. Nil errors map to 0,
// errors outside the taxonomy map to the generic failure code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *ConversionError
	if stderrors.As(err, &ce) {
		if ce.ExitCode == 0 {
			return ExitFailure
		}
		return ce.ExitCode
	}
	return ExitFailure
}
