package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Transport errors
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// Transport contract errors
	ErrCodeEncodingMismatch    ErrorCode = "ENCODING_MISMATCH"
	ErrCodeContentTypeMismatch ErrorCode = "CONTENT_TYPE_MISMATCH"

	// Document errors
	ErrCodeMalformedXML   ErrorCode = "XML_MALFORMED"
	ErrCodeSchemaInvalid  ErrorCode = "SCHEMA_INVALID"
	ErrCodeTimestampParse ErrorCode = "TIMESTAMP_PARSE"

	// Setup errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured error with code, message and, for transport
// failures, the upstream HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status,omitempty"`
	Details    any       `json:"details,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if diags, ok := e.Details.([]string); ok && len(diags) > 0 {
		msg += "\n" + strings.Join(diags, "\n")
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given code and message
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError, preserving the original error
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds additional details to an AppError
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithStatus records the upstream HTTP status on an AppError
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

// Transport errors
func TransportError(message string, err error) *AppError {
	return Wrap(ErrCodeTransport, message, err)
}

func UnexpectedStatusError(status int, body string) *AppError {
	msg := fmt.Sprintf("server responded with status %d", status)
	if body != "" {
		msg += ": " + body
	}
	return New(ErrCodeTransport, msg).WithStatus(status)
}

// Transport contract errors
func EncodingMismatchError(expected, actual string) *AppError {
	return New(ErrCodeEncodingMismatch,
		fmt.Sprintf("response is not encoded as %q: Content-Encoding is %q", expected, actual)).
		WithDetails(map[string]string{"expected": expected, "actual": actual})
}

func ContentTypeMismatchError(expected, actual string) *AppError {
	return New(ErrCodeContentTypeMismatch,
		fmt.Sprintf("Content-Type is %q, not %q", actual, expected)).
		WithDetails(map[string]string{"expected": expected, "actual": actual})
}

// Document errors
func MalformedXMLError(err error) *AppError {
	return Wrap(ErrCodeMalformedXML, "response body is not well-formed XML", err)
}

func SchemaValidationError(diagnostics []string) *AppError {
	return New(ErrCodeSchemaInvalid,
		fmt.Sprintf("document failed schema validation with %d error(s)", len(diagnostics))).
		WithDetails(diagnostics)
}

func TimestampParseError(field, value string, err error) *AppError {
	return Wrap(ErrCodeTimestampParse, fmt.Sprintf("cannot parse %s %q", field, value), err)
}

// Setup errors
func ConfigError(message string, err error) *AppError {
	return Wrap(ErrCodeConfigInvalid, message, err)
}

// Internal errors
func InternalError(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts AppError from an error, wrapping non-AppErrors as InternalError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err.Error())
}

// CodeOf returns the code of the AppError in err's chain, or ErrCodeInternal
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Diagnostics returns the schema diagnostics carried by err, if any
func Diagnostics(err error) []string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return nil
	}
	diags, _ := appErr.Details.([]string)
	return diags
}
