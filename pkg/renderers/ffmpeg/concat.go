// Package ffmpeg joins rendered clips with the ffmpeg concat demuxer.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoInputs is returned when there is nothing to concatenate.
var ErrNoInputs = errors.New("no input videos to concatenate")

// Runner executes an external command and returns its stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stderr.String(), err
}

// Concatenator joins clips in order without re-encoding.
type Concatenator struct {
	binary    string
	outputDir string
	runner    Runner
	logger    *slog.Logger
}

// NewConcatenator returns a concatenator writing into outputDir.
func NewConcatenator(logger *slog.Logger, binary, outputDir string) *Concatenator {
	if binary == "" {
		binary = "ffmpeg"
	}

	return &Concatenator{
		binary:    binary,
		outputDir: outputDir,
		runner:    execRunner{},
		logger:    logger.With("module", "ffmpeg"),
	}
}

// WithRunner replaces the command runner.
func (c *Concatenator) WithRunner(runner Runner) *Concatenator {
	c.runner = runner

	return c
}

// Concatenate writes a concat list for paths, runs ffmpeg and returns the
// output path. The list file is removed whether ffmpeg succeeds or not.
func (c *Concatenator) Concatenate(ctx context.Context, paths []string, outputName string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoInputs
	}

	if err := os.MkdirAll(c.outputDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	listFile, err := os.CreateTemp(c.outputDir, "filelist-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}

	defer func() {
		if err := os.Remove(listFile.Name()); err != nil && !os.IsNotExist(err) {
			c.logger.WarnContext(ctx, "failed to remove concat list", "path", listFile.Name(), "error", err)
		}
	}()

	_, err = listFile.WriteString(ConcatList(paths))
	if closeErr := listFile.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	output := filepath.Join(c.outputDir, outputName)

	c.logger.InfoContext(ctx, "Concatenating videos", "count", len(paths), "output", output)

	stderr, err := c.runner.Run(ctx, c.binary,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		output,
	)
	if err != nil {
		return "", fmt.Errorf("ffmpeg concat failed: %w: %s", err, strings.TrimSpace(stderr))
	}

	return output, nil
}

// ConcatList renders the concat demuxer input for paths.
func ConcatList(paths []string) string {
	lines := make([]string, 0, len(paths))
	for _, path := range paths {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}

		lines = append(lines, "file '"+strings.ReplaceAll(path, "'", `'\''`)+"'")
	}

	return strings.Join(lines, "\n") + "\n"
}
