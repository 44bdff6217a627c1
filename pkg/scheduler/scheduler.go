// Package scheduler triggers episode runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// ErrMissingCron is returned when no cron expression is configured.
var ErrMissingCron = errors.New("schedule cron expression is required")

// Runner executes one episode run.
type Runner interface {
	Run(ctx context.Context, request workflow.RunRequest) (*models.WorkflowState, error)
}

type Scheduler struct {
	cronExpr   string
	lockTTL    time.Duration
	visibility models.Visibility
	runner     Runner
	locker     Locker
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewScheduler validates the schedule. A nil locker serializes runs in process only.
func NewScheduler(logger *slog.Logger, cfg config.ScheduleConfig, runner Runner, locker Locker) (*Scheduler, error) {
	if cfg.Cron == "" {
		return nil, ErrMissingCron
	}

	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	if locker == nil {
		locker = NewLocalLocker()
	}

	visibility := models.Visibility(cfg.Visibility)
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	return &Scheduler{
		cronExpr:   cfg.Cron,
		lockTTL:    cfg.LockTTL,
		visibility: visibility,
		runner:     runner,
		locker:     locker,
		logger:     logger.With("module", "scheduler", "cron", cfg.Cron),
	}, nil
}

// Start registers the job and starts the cron loop. Runs stop with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting scheduler")

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := s.cron.AddFunc(s.cronExpr, func() {
		if err := s.Trigger(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.logger.InfoContext(ctx, "Added cron job", "id", id)
	s.cron.Start()

	return nil
}

// Next returns the next activation time after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	schedule, err := cron.ParseStandard(s.cronExpr)
	if err != nil {
		return time.Time{}
	}

	return schedule.Next(now)
}

// Trigger runs one episode unless another replica holds the lock.
func (s *Scheduler) Trigger(ctx context.Context) error {
	release, err := s.locker.Acquire(ctx, LockKey, s.lockTTL)
	if err != nil {
		return err
	}

	if release == nil {
		s.logger.InfoContext(ctx, "Run already in progress, skipping")

		return nil
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "Failed to release schedule lock", "error", err)
		}
	}()

	s.logger.InfoContext(ctx, "Cron job triggered")

	state, err := s.runner.Run(ctx, workflow.RunRequest{Visibility: s.visibility})
	if err != nil {
		return err
	}

	if state.Failed() {
		s.logger.WarnContext(ctx, "Scheduled run failed", "execution_id", state.ExecutionID, "error", state.Error)

		return nil
	}

	s.logger.InfoContext(ctx, "Scheduled run completed", "execution_id", state.ExecutionID, "episode", state.Episode())

	return nil
}

// Stop stops the cron loop and waits for a running job.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "Stopping scheduler")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
