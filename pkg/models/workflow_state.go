package models

import (
	"time"
)

// StepName identifies a node of the episode workflow.
type StepName string

const (
	StepLoadHistory    StepName = "load_history"
	StepGenerateStory  StepName = "generate_story"
	StepGenerateVideos StepName = "generate_videos"
	StepUpload         StepName = "upload"
	StepSaveHistory    StepName = "save_history"
	StepHandleError    StepName = "handle_error"

	// StepError is the current step of a run that ended in handle_error.
	StepError StepName = "error"
)

// WorkflowState is the single mutable carrier of one run. It is owned by one
// orchestrator run and never shared.
type WorkflowState struct {
	EpisodeNumber     *int                `json:"episode_number,omitempty"`
	Visibility        Visibility          `json:"visibility"`
	Story             *Story              `json:"story,omitempty"`
	History           []StoryHistoryEntry `json:"history,omitempty"`
	PriorEpisodes     int                 `json:"prior_episodes,omitempty"`
	StoryID           *int64              `json:"story_id,omitempty"`
	FinalVideoPath    string              `json:"final_video_path,omitempty"`
	VideoGenerationID *int64              `json:"video_generation_id,omitempty"`
	UploadResult      *UploadResult       `json:"upload_result,omitempty"`
	UploadID          *int64              `json:"youtube_upload_id,omitempty"`
	Error             string              `json:"error,omitempty"`
	CurrentStep       StepName            `json:"current_step"`
	ExecutionID       string              `json:"execution_id"`
	Timestamp         time.Time           `json:"timestamp"`
	Path              []StepName          `json:"path,omitempty"`
}

// NewWorkflowState prepares the state of a new run.
func NewWorkflowState(executionID string, episode *int, visibility Visibility, now time.Time) *WorkflowState {
	return &WorkflowState{
		EpisodeNumber: episode,
		Visibility:    visibility,
		History:       []StoryHistoryEntry{},
		ExecutionID:   executionID,
		Timestamp:     now,
	}
}

// Failed reports whether the run carries an error.
func (s *WorkflowState) Failed() bool {
	return s.Error != ""
}

// Fail records the first error of the run. Later failures keep the original message.
func (s *WorkflowState) Fail(step StepName, message string) {
	if s.Error != "" {
		return
	}

	if message == "" {
		message = "unknown error"
	}

	s.Error = message
	s.CurrentStep = step
}

// Episode returns the episode number or zero when it is not assigned yet.
func (s *WorkflowState) Episode() int {
	if s.EpisodeNumber == nil {
		return 0
	}

	return *s.EpisodeNumber
}

// LedgerUpdate builds the terminal ledger update for the state.
func (s *WorkflowState) LedgerUpdate() ExecutionUpdate {
	status := ExecutionStatusCompleted
	if s.Failed() {
		status = ExecutionStatusFailed
	}

	return ExecutionUpdate{
		Status:            status,
		CurrentStep:       s.CurrentStep,
		EpisodeNumber:     s.EpisodeNumber,
		StoryID:           s.StoryID,
		VideoGenerationID: s.VideoGenerationID,
		YouTubeUploadID:   s.UploadID,
		ErrorMessage:      s.Error,
	}
}
