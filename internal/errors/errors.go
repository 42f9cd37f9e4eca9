package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes for hard pipeline failures. Soft failures (unparseable dates,
// missing grouping values) are coerced and logged instead of raised.
const (
	CodeInputLengthMismatch = "INPUT_LENGTH_MISMATCH"
	CodeMissingColumn       = "MISSING_COLUMN"
	CodeNoFindingColumns    = "NO_FINDING_COLUMNS"
	CodeUnknownFormat       = "UNKNOWN_FORMAT"
	CodeInvalidDate         = "INVALID_DATE"
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeExportFailed        = "EXPORT_FAILED"
)

// Error is a coded pipeline error. Two Errors are considered equivalent by
// errors.Is when their codes match, so the predefined sentinels below can be
// used as targets for errors returned with details attached.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a new coded error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewWithDetails creates a new coded error carrying structured details.
func NewWithDetails(code, message string, details interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Wrap creates a new coded error wrapping an underlying cause.
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined sentinels for the hard-failure scenarios.
var (
	ErrInputLengthMismatch = New(CodeInputLengthMismatch, "parallel inputs differ in length")
	ErrMissingColumn       = New(CodeMissingColumn, "required column not found")
	ErrNoFindingColumns    = New(CodeNoFindingColumns, "no finding columns discoverable in schema")
	ErrUnknownFormat       = New(CodeUnknownFormat, "unknown output format")
	ErrInvalidDate         = New(CodeInvalidDate, "invalid or missing date")
	ErrConfigInvalid       = New(CodeConfigInvalid, "invalid configuration")
	ErrExportFailed        = New(CodeExportFailed, "export failed")
)

// CodeOf extracts the pipeline error code from err, or "" when err carries
// no coded error in its chain.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
