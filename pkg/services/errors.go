// Package services provides the project management commands of the episode pipeline.
package services

import (
	"errors"
	"fmt"
)

// Validation errors. These indicate client errors.
var (
	ErrInvalidCommand         = errors.New("invalid command")
	ErrInvalidMigrationAction = errors.New("invalid migration action")
	ErrInvalidRevision        = errors.New("invalid migration revision")
	ErrInvalidDays            = errors.New("days must not be negative")
	ErrInvalidLimit           = errors.New("limit must be positive")
	ErrVideoFileNotFound      = errors.New("video file not found")
)

// Unavailable collaborators.
var (
	ErrNoDatabase  = errors.New("no database configured")
	ErrNoPublisher = errors.New("publisher not configured")
	ErrNoRunner    = errors.New("workflow runner not configured")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCommand) ||
		errors.Is(err, ErrInvalidMigrationAction) ||
		errors.Is(err, ErrInvalidRevision) ||
		errors.Is(err, ErrInvalidDays) ||
		errors.Is(err, ErrInvalidLimit)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
