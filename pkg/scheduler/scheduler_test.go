package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu       sync.Mutex
	requests []workflow.RunRequest
	state    *models.WorkflowState
	err      error
}

func (r *fakeRunner) Run(_ context.Context, request workflow.RunRequest) (*models.WorkflowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, request)

	if r.err != nil {
		return nil, r.err
	}

	return r.state, nil
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return nil, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedState() *models.WorkflowState {
	return models.NewWorkflowState("exec-1", nil, models.VisibilityPublic, time.Now())
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(discard(), config.ScheduleConfig{}, &fakeRunner{}, nil)
	assert.ErrorIs(t, err, ErrMissingCron)

	_, err = NewScheduler(discard(), config.ScheduleConfig{Cron: "every day"}, &fakeRunner{}, nil)
	assert.ErrorContains(t, err, "invalid cron expression")

	scheduler, err := NewScheduler(discard(), config.ScheduleConfig{Cron: "0 9 * * *"}, &fakeRunner{}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, scheduler.visibility)
}

func TestScheduler_Next(t *testing.T) {
	scheduler, err := NewScheduler(discard(), config.ScheduleConfig{Cron: "0 9 * * *"}, &fakeRunner{}, nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), scheduler.Next(now))
}

func TestScheduler_TriggerRuns(t *testing.T) {
	runner := &fakeRunner{state: completedState()}

	scheduler, err := NewScheduler(discard(), config.ScheduleConfig{Cron: "0 9 * * *", Visibility: "private"}, runner, nil)
	require.NoError(t, err)

	require.NoError(t, scheduler.Trigger(context.Background()))
	require.NoError(t, scheduler.Trigger(context.Background()))

	require.Len(t, runner.requests, 2)
	assert.Equal(t, models.VisibilityPrivate, runner.requests[0].Visibility)
	assert.Nil(t, runner.requests[0].Episode)
}

func TestScheduler_TriggerSkipsWhenLocked(t *testing.T) {
	runner := &fakeRunner{state: completedState()}

	scheduler, err := NewScheduler(discard(), config.ScheduleConfig{Cron: "0 9 * * *"}, runner, heldLocker{})
	require.NoError(t, err)

	require.NoError(t, scheduler.Trigger(context.Background()))
	assert.Empty(t, runner.requests)
}

func TestScheduler_TriggerReleasesOnError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("ledger unavailable")}
	locker := NewLocalLocker()

	scheduler, err := NewScheduler(discard(), config.ScheduleConfig{Cron: "0 9 * * *"}, runner, locker)
	require.NoError(t, err)

	assert.ErrorContains(t, scheduler.Trigger(context.Background()), "ledger unavailable")

	release, err := locker.Acquire(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, release)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler, err := NewScheduler(discard(), config.ScheduleConfig{Cron: "0 9 * * *"}, &fakeRunner{}, nil)
	require.NoError(t, err)

	require.NoError(t, scheduler.Stop(context.Background()))
	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()

	release, err := locker.Acquire(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, release)

	second, err := locker.Acquire(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, release(context.Background()))

	third, err := locker.Acquire(context.Background(), LockKey, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, third)
}
