package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
)

func TestPrintResult_Success(t *testing.T) {
	var buf bytes.Buffer

	err := printResult(&buf, "status", services.Result{Success: true, Message: "Project status retrieved"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "status", decoded["command"])
	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, "Project status retrieved", decoded["message"])
	assert.Contains(t, buf.String(), "\n  \"")
}

func TestPrintResult_FailureReturnsError(t *testing.T) {
	var buf bytes.Buffer

	err := printResult(&buf, "migrate", services.Result{Message: "Migration failed"})
	require.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "Migration failed")
	assert.Contains(t, buf.String(), "\"success\": false")
}

func TestOpen_FileStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	dir := t.TempDir()

	var env *environment

	command := &cli.Command{
		Name:  "episodic",
		Flags: config.Flags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			var err error

			env, err = open(ctx, command, false)

			return err
		},
	}

	err := command.Run(context.Background(), []string{
		"episodic",
		"--data-dir", filepath.Join(dir, "data"),
		"--output-dir", filepath.Join(dir, "videos"),
		"--logs-dir", filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)
	require.NotNil(t, env)

	defer env.close(context.Background())

	assert.NotNil(t, env.store.History)

	result := env.project.Run(context.Background(), services.Command{Name: services.CommandStatus})
	assert.True(t, result.Success)
	assert.Equal(t, "Project status retrieved", result.Message)
}
