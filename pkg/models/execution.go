package models

import (
	"time"
)

// ExecutionStatus represents the lifecycle of one pipeline run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// Execution is the ledger entry of one orchestrator run. It is created as
// running and then updated in place; once it leaves running it is frozen.
type Execution struct {
	ID                string          `json:"id"`
	EpisodeNumber     *int            `json:"episode_number,omitempty"`
	Status            ExecutionStatus `json:"status"`
	CurrentStep       StepName        `json:"current_step,omitempty"`
	StoryID           *int64          `json:"story_id,omitempty"`
	VideoGenerationID *int64          `json:"video_generation_id,omitempty"`
	YouTubeUploadID   *int64          `json:"youtube_upload_id,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	DurationSeconds   *int64          `json:"duration_seconds,omitempty"`
}

// NewExecution returns a running ledger entry started at now.
func NewExecution(id string, episode *int, now time.Time) *Execution {
	return &Execution{
		ID:            id,
		EpisodeNumber: episode,
		Status:        ExecutionStatusRunning,
		StartedAt:     now,
	}
}

// ExecutionUpdate is a partial update of a ledger entry. Nil and empty
// fields are left untouched.
type ExecutionUpdate struct {
	Status            ExecutionStatus
	CurrentStep       StepName
	EpisodeNumber     *int
	StoryID           *int64
	VideoGenerationID *int64
	YouTubeUploadID   *int64
	ErrorMessage      string
}

// Apply merges update into the entry. Status only moves from running to a
// terminal status; record links and the error message are set once. When the
// status leaves running, CompletedAt and DurationSeconds are stamped together.
func (e *Execution) Apply(update ExecutionUpdate, now time.Time) error {
	if e.Status.IsTerminal() {
		return ErrExecutionFinished
	}

	if update.Status != "" && update.Status != ExecutionStatusRunning && !update.Status.IsTerminal() {
		return ErrInvalidExecutionStatus
	}

	if update.CurrentStep != "" {
		e.CurrentStep = update.CurrentStep
	}

	if e.EpisodeNumber == nil && update.EpisodeNumber != nil {
		e.EpisodeNumber = update.EpisodeNumber
	}

	if e.StoryID == nil && update.StoryID != nil {
		e.StoryID = update.StoryID
	}

	if e.VideoGenerationID == nil && update.VideoGenerationID != nil {
		e.VideoGenerationID = update.VideoGenerationID
	}

	if e.YouTubeUploadID == nil && update.YouTubeUploadID != nil {
		e.YouTubeUploadID = update.YouTubeUploadID
	}

	if e.ErrorMessage == "" && update.ErrorMessage != "" {
		e.ErrorMessage = update.ErrorMessage
	}

	if update.Status.IsTerminal() {
		e.complete(update.Status, now)
	}

	return nil
}

func (e *Execution) complete(status ExecutionStatus, now time.Time) {
	completed := now.UTC()
	duration := int64(completed.Sub(normalizeUTC(e.StartedAt)) / time.Second)

	if duration < 0 {
		duration = 0
	}

	e.Status = status
	e.CompletedAt = &completed
	e.DurationSeconds = &duration
}

// IsAbandoned reports whether a running entry started longer than bound ago.
func (e *Execution) IsAbandoned(now time.Time, bound time.Duration) bool {
	if e.Status != ExecutionStatusRunning || bound <= 0 {
		return false
	}

	return now.Sub(normalizeUTC(e.StartedAt)) > bound
}

// normalizeUTC moves t to UTC. Timestamps read back from storage may carry
// an unnamed fixed zone; comparing in UTC keeps durations zone independent.
func normalizeUTC(t time.Time) time.Time {
	return t.UTC()
}
