// Error taxonomy shared by the dataset, augmentation and feature packages
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeFormat     ErrorType = "format"
	ErrorTypeSampling   ErrorType = "sampling"
	ErrorTypeNotFitted  ErrorType = "not_fitted"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeProcessing ErrorType = "processing"
)

// AppError represents a structured error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewFormatError reports malformed or mismatched input tables.
func NewFormatError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeFormat, Message: message, Cause: cause}
}

// NewSamplingError reports an impossible per-label sample request.
func NewSamplingError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeSampling, Message: message, Cause: cause}
}

// NewNotFittedError reports use of a model before Fit.
func NewNotFittedError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFitted, Message: message}
}

// NewValidationError reports invalid arguments or configuration.
func NewValidationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Cause: cause}
}

// NewProcessingError reports a failure inside an image operation.
func NewProcessingError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeProcessing, Message: message, Cause: cause}
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}
