package models

import "errors"

var (
	// ErrExecutionFinished is returned when updating a ledger entry that already left running.
	ErrExecutionFinished = errors.New("execution already finished")

	// ErrInvalidExecutionStatus is returned for an unknown ledger status.
	ErrInvalidExecutionStatus = errors.New("invalid execution status")

	// ErrInvalidVisibility is returned for a visibility other than public, private or unlisted.
	ErrInvalidVisibility = errors.New("invalid visibility")
)
