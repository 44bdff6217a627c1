package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/episodic/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepFailed_JSON(t *testing.T) {
	original := &StepFailed{
		BaseEvent: NewBaseEvent(StepFailedEvent, "exec-1"),
		Step:      models.StepUpload,
		Error:     "quota exceeded",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"step.failed"`)
	assert.Contains(t, string(data), `"execution_id":"exec-1"`)
	assert.Contains(t, string(data), `"step":"upload"`)

	decoded, ok := New(StepFailedEvent).(*StepFailed)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, original.Error, decoded.Error)
	assert.Equal(t, original.ID, decoded.ID)
}

func TestNew(t *testing.T) {
	types := map[EventType]EventType{
		ExecutionStartedEvent:   ExecutionStarted{}.GetType(),
		ExecutionCompletedEvent: ExecutionCompleted{}.GetType(),
		ExecutionFailedEvent:    ExecutionFailed{}.GetType(),
		StepStartedEvent:        StepStarted{}.GetType(),
		StepCompletedEvent:      StepCompleted{}.GetType(),
		StepFailedEvent:         StepFailed{}.GetType(),
	}

	for eventType, got := range types {
		assert.Equal(t, eventType, got)
		assert.NotNil(t, New(eventType))
	}

	assert.Nil(t, New("workflow.paused"))
}
