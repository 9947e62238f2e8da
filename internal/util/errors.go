package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common error types for ctxexec
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidAttribute indicates a malformed key=value attribute
	ErrInvalidAttribute = errors.New("invalid attribute")
)

// TaskError wraps an error with the name of the task that produced it
type TaskError struct {
	Task string
	Err  error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *TaskError) Unwrap() error {
	return e.Err
}

// WrapTaskError wraps an error with task context
func WrapTaskError(task string, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{Task: task, Err: err}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 {
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// CombineErrors combines multiple errors into a single error.
// Returns nil if all errors are nil.
func CombineErrors(errs ...error) error {
	m := &MultiError{}
	for _, err := range errs {
		m.Add(err)
	}
	return m.ErrorOrNil()
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidConfig) match validation failures
func (v *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsTimeout reports whether err came from an expired context deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsCancelled reports whether err came from a cancelled context
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsTimeout(err):
		return "Operation timed out. Please try again or increase the timeout value with --timeout flag."
	case IsCancelled(err):
		return "Operation was cancelled."
	case errors.Is(err, ErrInvalidAttribute):
		return "Invalid attribute. Attributes must be given as key=value."
	case errors.Is(err, ErrInvalidConfig):
		return fmt.Sprintf("Invalid configuration: %v. Please check your config file and command-line flags.", err)
	default:
		return err.Error()
	}
}

// WrapErrorf wraps an error with a formatted message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
