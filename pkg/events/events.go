// Package events defines the lifecycle notifications of episode runs.
package events

import (
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the default topic of lifecycle events.
const Topic = "episodic.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Workflow node events.
	StepStartedEvent   EventType = "step.started"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	EpisodeNumber *int              `json:"episode_number,omitempty"`
	Visibility    models.Visibility `json:"visibility"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	EpisodeNumber   int    `json:"episode_number"`
	StoryID         *int64 `json:"story_id,omitempty"`
	VideoPath       string `json:"video_path,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Step  models.StepName `json:"step"`
	Error string          `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type StepStarted struct {
	BaseEvent

	Step models.StepName `json:"step"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	Step     models.StepName `json:"step"`
	Duration time.Duration   `json:"duration"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	Step  models.StepName `json:"step"`
	Error string          `json:"error"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}

func NewBaseEvent(eventType EventType, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		Metadata:    make(map[string]any),
	}
}

// New returns an empty event of eventType to decode a payload into, or nil
// for an unknown type.
func New(eventType EventType) any {
	switch eventType {
	case ExecutionStartedEvent:
		return &ExecutionStarted{}
	case ExecutionCompletedEvent:
		return &ExecutionCompleted{}
	case ExecutionFailedEvent:
		return &ExecutionFailed{}
	case StepStartedEvent:
		return &StepStarted{}
	case StepCompletedEvent:
		return &StepCompleted{}
	case StepFailedEvent:
		return &StepFailed{}
	default:
		return nil
	}
}
