package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/dukex/episodic/pkg/cmd"
	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/log"
	"github.com/dukex/episodic/pkg/otelhelper"
	"github.com/dukex/episodic/pkg/services"
	cli "github.com/urfave/cli/v3"
)

// ErrCommandFailed is returned when a project command reports failure.
var ErrCommandFailed = errors.New("command failed")

// environment is what every subcommand opens before running.
type environment struct {
	config  *config.Config
	store   *cmd.Store
	logger  *slog.Logger
	project *services.Project
}

func (e *environment) close(ctx context.Context) {
	if err := e.store.Close(ctx); err != nil {
		e.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}

// open builds the configuration and the store. migrate brings the schema up
// to date on open.
func open(ctx context.Context, command *cli.Command, migrate bool) (*environment, error) {
	cfg, err := config.FromCommand(command)
	if err != nil {
		return nil, err
	}

	logger := log.WithModule("episodic")
	logger.DebugContext(ctx, "Configuration loaded", "config", cfg.String())

	store, err := cmd.NewPersistence(ctx, logger, cfg, migrate)
	if err != nil {
		return nil, err
	}

	return &environment{
		config: cfg,
		store:  store,
		logger: logger,
		project: services.NewProject(logger, services.ProjectDependencies{
			Config:      cfg,
			Persistence: store,
			History:     store.History,
		}),
	}, nil
}

// withPipeline adds the wired workflow to the project.
func (e *environment) withPipeline(ctx context.Context) (*cmd.Pipeline, func(), error) {
	bus, err := cmd.NewEventBus(e.config.EventBus, e.logger)
	if err != nil {
		return nil, nil, err
	}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, "episodic")
	if err != nil {
		_ = bus.Close()

		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	pipeline, err := cmd.NewPipeline(ctx, e.logger, e.config, e.store, bus, tracer)
	if err != nil {
		_ = bus.Close()
		_ = shutdown(ctx)

		return nil, nil, err
	}

	e.project = services.NewProject(e.logger, services.ProjectDependencies{
		Config:      e.config,
		Persistence: e.store,
		History:     e.store.History,
		Runner:      pipeline.Orchestrator,
		Publisher:   pipeline.Publisher,
	})

	cleanup := func() {
		if err := pipeline.Close(); err != nil {
			e.logger.ErrorContext(ctx, "Failed to close story model", "error", err)
		}

		if err := bus.Close(); err != nil {
			e.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}

		if err := shutdown(ctx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
		}
	}

	return pipeline, cleanup, nil
}

// printResult writes the result as indented JSON and maps failure to an error.
func printResult(w io.Writer, name string, result services.Result) error {
	output := struct {
		Command string `json:"command"`
		services.Result
	}{Command: name, Result: result}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(output); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrCommandFailed, result.Message)
	}

	return nil
}

// runProject opens the environment and runs one project command.
func runProject(ctx context.Context, command *cli.Command, migrate bool, projectCommand services.Command) error {
	env, err := open(ctx, command, migrate)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	return printResult(os.Stdout, projectCommand.Name, env.project.Run(ctx, projectCommand))
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check project status",
		Action: func(ctx context.Context, command *cli.Command) error {
			return runProject(ctx, command, false, services.Command{Name: services.CommandStatus})
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a new episode",
		ArgsUsage: "[episode]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "private",
				Usage: "Upload as private video",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			var episode *int

			if arg := command.Args().First(); arg != "" {
				value, err := strconv.Atoi(arg)
				if err != nil || value < 1 {
					return fmt.Errorf("invalid episode number: %s", arg)
				}

				episode = &value
			}

			env, err := open(ctx, command, true)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			_, cleanup, err := env.withPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return printResult(os.Stdout, services.CommandGenerate, env.project.Run(ctx, services.Command{
				Name:    services.CommandGenerate,
				Episode: episode,
				Private: command.Bool("private"),
			}))
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "View episode history",
		ArgsUsage: "[limit]",
		Action: func(ctx context.Context, command *cli.Command) error {
			limit := 10

			if arg := command.Args().First(); arg != "" {
				value, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid limit: %s", arg)
				}

				limit = value
			}

			return runProject(ctx, command, false, services.Command{Name: services.CommandHistory, Limit: limit})
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "action",
				Usage: "Migration action (upgrade, downgrade, current, history)",
				Value: services.ActionUpgrade,
			},
			&cli.StringFlag{
				Name:  "revision",
				Usage: "Target revision (head, base, -1 or a version)",
				Value: "head",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return runProject(ctx, command, false, services.Command{
				Name:     services.CommandMigrate,
				Action:   command.String("action"),
				Revision: command.String("revision"),
			})
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Clean up old videos and logs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Delete files older than N days",
				Value: 7,
			},
			&cli.BoolFlag{
				Name:  "execute",
				Usage: "Actually delete files (default is dry-run)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return runProject(ctx, command, false, services.Command{
				Name:   services.CommandCleanup,
				Days:   command.Int("days"),
				DryRun: !command.Bool("execute"),
			})
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize directories and database",
		Action: func(ctx context.Context, command *cli.Command) error {
			return runProject(ctx, command, false, services.Command{Name: services.CommandInit})
		},
	}
}
