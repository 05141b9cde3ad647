package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError. The HTTP layer maps each code to a status.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Fields holds per-field validation messages keyed by request field name.
	Fields map[string]string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewValidationError(message string, fields map[string]string) *AppError {
	if message == "" {
		message = "The given data was invalid."
	}
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	}
}

// NewFieldError is a validation error on a single field.
func NewFieldError(field, message string) *AppError {
	return NewValidationError(message, map[string]string{field: message})
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
		Err:     err,
	}
}

// ErrorCode returns the AppError code of err, or CodeInternal for anything else.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ValidationBuilder collects field errors before deciding whether to fail.
type ValidationBuilder struct {
	fields map[string]string
}

// Add records msg for field unless the field already has a message.
func (b *ValidationBuilder) Add(field, msg string) {
	if b.fields == nil {
		b.fields = make(map[string]string)
	}
	if _, exists := b.fields[field]; !exists {
		b.fields[field] = msg
	}
}

// Has reports whether field already failed.
func (b *ValidationBuilder) Has(field string) bool {
	_, ok := b.fields[field]
	return ok
}

// Err returns nil when nothing was recorded.
func (b *ValidationBuilder) Err() error {
	if len(b.fields) == 0 {
		return nil
	}
	return NewValidationError("", b.fields)
}
