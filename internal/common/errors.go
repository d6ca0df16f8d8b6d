package common

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable code carried on every terminal failure.
// The presentation layer maps these to human-readable messages.
type ErrorCode string

// Stable values (these exact strings appear in API responses).
const (
	CodeNoFile         ErrorCode = "NO_FILE"
	CodeNoAPIKey       ErrorCode = "NO_API_KEY"
	CodePDFParseFailed ErrorCode = "PDF_PARSE_FAILED"
	CodeExtractFailed  ErrorCode = "EXTRACT_FAILED"
	CodeNotExportable  ErrorCode = "NOT_EXPORTABLE"
)

// AppError represents application-specific errors
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError builds a coded error.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf extracts the error code from err. Anything without a coded cause
// counts as an extraction failure, the catch-all of the taxonomy.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeExtractFailed
}

// HTTPStatus maps an error code to its response status. NO_FILE is a client
// input error, PDF_PARSE_FAILED is unprocessable input, NOT_EXPORTABLE is a
// gate conflict; everything else is a server-side failure.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeNoFile:
		return 400
	case CodePDFParseFailed:
		return 422
	case CodeNotExportable:
		return 409
	default:
		return 500
	}
}
