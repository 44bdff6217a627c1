package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrStoryNotFound indicates a story was not found by the given identifier.
	ErrStoryNotFound = errors.New("story not found")

	// ErrVideoGenerationNotFound indicates a video generation record was not found.
	ErrVideoGenerationNotFound = errors.New("video generation not found")

	// ErrUploadNotFound indicates an upload record was not found.
	ErrUploadNotFound = errors.New("upload not found")

	// ErrExecutionNotFound indicates a ledger entry was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrDuplicateEpisode indicates a story for the episode already exists.
	ErrDuplicateEpisode = errors.New("episode already exists")

	// ErrDuplicateVideoID indicates an upload with the same external id already exists.
	ErrDuplicateVideoID = errors.New("video id already exists")

	// ErrInvalidMigrationTarget indicates a downgrade target outside the known versions.
	ErrInvalidMigrationTarget = errors.New("invalid migration target")
)

// RecordError wraps repository errors with the record they concern.
type RecordError struct {
	Op   string // Operation being performed (e.g., "Create", "Update", "GetByID")
	Kind string // Record kind (e.g., "story", "execution")
	ID   string // Record identifier if applicable
	Err  error  // Underlying error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Kind, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, kind, id string, err error) *RecordError {
	return &RecordError{
		Op:   op,
		Kind: kind,
		ID:   id,
		Err:  err,
	}
}

// IsNotFound checks if an error indicates any record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStoryNotFound) ||
		errors.Is(err, ErrVideoGenerationNotFound) ||
		errors.Is(err, ErrUploadNotFound) ||
		errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionNotFound checks if an error indicates a ledger entry was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsDuplicate checks if an error indicates a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEpisode) || errors.Is(err, ErrDuplicateVideoID)
}
