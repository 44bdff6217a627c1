package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	envFile := os.Getenv("EPISODIC_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := &cli.Command{
		Name:                  "episodic",
		Usage:                 "Generate, render and publish daily cooking episodes",
		EnableShellCompletion: true,
		Flags:                 config.Flags(),
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			statusCommand(),
			generateCommand(),
			historyCommand(),
			migrateCommand(),
			cleanupCommand(),
			initCommand(),
			youtubeAuthCommand(),
			uploadTestCommand(),
			scheduleCommand(),
			watchCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
