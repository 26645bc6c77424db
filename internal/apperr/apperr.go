// Package apperr defines the error taxonomy shared by the renderer, the logo
// rasterizer and the HTTP layer.
//
// Every error that leaves a service boundary is either an *AppError or wraps
// one, so handlers can map it to a status code without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeProcessing = "PROCESSING_ERROR"
	CodeRateLimit  = "RATE_LIMITED"
	CodeInternal   = "INTERNAL_ERROR"
)

// AppError carries a machine-readable code, a client-safe message and the
// HTTP status the API should answer with. Cause is for server-side logs only.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap lets errors.Is and errors.As walk into the cause.
func (e *AppError) Unwrap() error { return e.Cause }

// NotFound reports that a template, component or logo does not exist.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// ValidationError reports malformed settings or an invalid upload.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// ProcessingError reports a decode, resize or raster failure. stage names
// the pipeline step that failed.
func ProcessingError(stage string, cause error) *AppError {
	return &AppError{
		Code:       CodeProcessing,
		Message:    fmt.Sprintf("logo processing failed at %s", stage),
		HTTPStatus: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// RateLimited reports that a tenant exceeded its upload budget.
func RateLimited(msg string) *AppError {
	return &AppError{
		Code:       CodeRateLimit,
		Message:    msg,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Internal wraps an unexpected failure. The cause is never sent to clients.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// As extracts the *AppError from err's chain, or returns nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an *AppError with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

// IsProcessing reports whether err is a ProcessingError.
func IsProcessing(err error) bool { return HasCode(err, CodeProcessing) }

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	if ae := As(err); ae != nil && ae.HTTPStatus != 0 {
		return ae.HTTPStatus
	}
	return http.StatusInternalServerError
}
