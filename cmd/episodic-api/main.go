package main

import (
	"context"
	"os"

	"github.com/dukex/episodic/pkg/cmd"
	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/log"
	"github.com/dukex/episodic/pkg/otelhelper"
	"github.com/dukex/episodic/pkg/web"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	if err := config.LoadEnvFile(".env"); err != nil {
		panic(err)
	}

	flags := append([]cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
	}, config.Flags()...)

	cmd := &cli.Command{
		Name:                  "episodic-api",
		Usage:                 "Inspect and start episode runs over HTTP",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Episodic API")

			cfg, err := config.FromCommand(command)
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, logger, cfg, true)
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(cfg.EventBus, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracer, shutdown, err := otelhelper.NewTracer(ctx, "episodic-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()

			var starter web.Starter

			pipeline, err := cmd.NewPipeline(ctx, logger, cfg, store, eventBus, tracer)
			if err != nil {
				logger.WarnContext(ctx, "Episode runs disabled", "error", err)
			} else {
				defer func() {
					if err := pipeline.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close story model", "error", err)
					}
				}()

				starter = pipeline.Orchestrator
			}

			api := NewAPI(logger, store, starter)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
