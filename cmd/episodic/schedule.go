package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/episodic/pkg/cmd"
	"github.com/dukex/episodic/pkg/eventbus"
	"github.com/dukex/episodic/pkg/events"
	"github.com/dukex/episodic/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Generate an episode on a cron schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression of the recurring run",
				Value:   "0 9 * * *",
				Sources: cli.EnvVars("SCHEDULE_CRON"),
			},
			&cli.StringFlag{
				Name:    "visibility",
				Usage:   "Visibility of scheduled uploads (public, private, unlisted)",
				Value:   "public",
				Sources: cli.EnvVars("SCHEDULE_VISIBILITY"),
			},
			&cli.DurationFlag{
				Name:    "lock-ttl",
				Usage:   "Expiry of the cross-replica run lock",
				Value:   time.Hour,
				Sources: cli.EnvVars("SCHEDULE_LOCK_TTL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := open(ctx, command, true)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			env.config.Schedule.Cron = command.String("cron")
			env.config.Schedule.Visibility = command.String("visibility")
			env.config.Schedule.LockTTL = command.Duration("lock-ttl")

			if err := env.config.Validate(); err != nil {
				return err
			}

			pipeline, cleanup, err := env.withPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var locker scheduler.Locker

			if env.config.Schedule.RedisURL != "" {
				client, err := scheduler.NewRedisClient(ctx, env.config.Schedule.RedisURL)
				if err != nil {
					return err
				}

				defer func() {
					if err := client.Close(); err != nil {
						env.logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
					}
				}()

				locker = scheduler.NewRedisLocker(client)
			}

			schedule, err := scheduler.NewScheduler(env.logger, env.config.Schedule, pipeline.Orchestrator, locker)
			if err != nil {
				return err
			}

			if err := schedule.Start(ctx); err != nil {
				return err
			}

			env.logger.InfoContext(ctx, "Scheduler running", "next", schedule.Next(time.Now()))

			<-ctx.Done()

			env.logger.InfoContext(ctx, "Shutting down scheduler")

			return schedule.Stop(context.WithoutCancel(ctx))
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Log run lifecycle events published on the event bus",
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := open(ctx, command, false)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			bus, err := cmd.NewEventBus(env.config.EventBus, env.logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					env.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			for _, eventType := range []events.EventType{
				events.ExecutionStartedEvent,
				events.ExecutionCompletedEvent,
				events.ExecutionFailedEvent,
				events.StepStartedEvent,
				events.StepCompletedEvent,
				events.StepFailedEvent,
			} {
				if err := bus.Handle(eventType, logEvent(env, eventType)); err != nil {
					return err
				}
			}

			if err := bus.Subscribe(ctx); err != nil {
				return err
			}

			env.logger.InfoContext(ctx, "Watching events", "provider", env.config.EventBus.Provider, "topic", env.config.EventBus.Topic)

			<-ctx.Done()

			return nil
		},
	}
}

func logEvent(env *environment, eventType events.EventType) eventbus.EventHandler {
	return func(ctx context.Context, event any) error {
		env.logger.InfoContext(ctx, "Event received", "type", eventType, "event", event)

		return nil
	}
}
