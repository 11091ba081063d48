package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Sessions
	ErrCodeInvalidRetention ErrorCode = "INVALID_RETENTION"

	// Themes
	ErrCodeInvalidTheme      ErrorCode = "INVALID_THEME"
	ErrCodeThemeUnavailable  ErrorCode = "THEME_UNAVAILABLE"
	ErrCodeThemeInstallFailed ErrorCode = "THEME_INSTALL_FAILED"

	// Rendering
	ErrCodeRenderFailed    ErrorCode = "RENDER_FAILED"
	ErrCodeArtifactMissing ErrorCode = "ARTIFACT_MISSING"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidRetention(days, maxDays int) *AppError {
	return New(ErrCodeInvalidRetention,
		fmt.Sprintf("Retention period must be between 1 and %d days, got %d", maxDays, days))
}

func InvalidTheme(slug string) *AppError {
	return New(ErrCodeInvalidTheme, fmt.Sprintf("Unknown theme: %s", slug))
}

func ThemeUnavailable(slug string, cause error) *AppError {
	return Wrap(ErrCodeThemeUnavailable, fmt.Sprintf("Theme %s could not be provisioned", slug), cause)
}

func ThemeInstallFailed(slug string, cause error) *AppError {
	return Wrap(ErrCodeThemeInstallFailed, fmt.Sprintf("Failed to install theme %s", slug), cause)
}

func RenderFailed(diagnostic string) *AppError {
	return New(ErrCodeRenderFailed, fmt.Sprintf("Failed to generate CV: %s", diagnostic))
}

func ArtifactMissing(path string) *AppError {
	return New(ErrCodeArtifactMissing, "Renderer reported success but produced no output file").
		WithDetails(map[string]string{"path": path})
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
