// Package core provides the command result and error model shared by the
// engine, the HTTP dispatcher and the client.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, out_of_bounds, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code, so that
// copies made by WithMessage/WithCause still match the predefined errors.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// HTTPStatus maps the error to the status code the dispatcher responds with.
func (e *ExecutionError) HTTPStatus() int {
	switch e.Category {
	case ErrCategoryRequest:
		if e.Code == ErrRateLimited.Code {
			return http.StatusTooManyRequests
		}
		return http.StatusBadRequest
	case ErrCategoryResolution:
		return http.StatusNotFound
	case ErrCategoryBounds:
		return http.StatusConflict
	case ErrCategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors
var (
	// Request errors
	ErrMalformedRequest = &ExecutionError{
		Category: ErrCategoryRequest,
		Code:     "malformed_request",
		Message:  "malformed request",
	}
	ErrRateLimited = &ExecutionError{
		Category: ErrCategoryRequest,
		Code:     "rate_limited",
		Message:  "too many requests",
	}

	// Resolution errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrContainerNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "container_not_found",
		Message:  "scrollable container not found",
	}
	ErrItemNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "item_not_found",
		Message:  "item not found in container",
	}

	// Bounds errors
	ErrOutOfBounds = &ExecutionError{
		Category: ErrCategoryBounds,
		Code:     "out_of_bounds",
		Message:  "item not brought into view",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}

	// Command file assertions
	ErrAssertionFailed = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "assertion_failed",
		Message:  "assertion failed",
	}

	// Internal errors
	ErrInternal = &ExecutionError{
		Category: ErrCategoryInternal,
		Code:     "internal_error",
		Message:  "internal server error",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// AsExecutionError converts any error into an ExecutionError, wrapping
// unknown errors as internal errors.
func AsExecutionError(err error) *ExecutionError {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}
	return ErrInternal.WithCause(err)
}
