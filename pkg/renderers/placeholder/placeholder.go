// Package placeholder provides a renderer that produces empty stand-in clips.
// It backs --dry-run and replaces segments the real renderer could not produce.
package placeholder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukex/episodic/pkg/models"
)

// Renderer writes empty mock files named after the clock and a sequence number.
type Renderer struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time

	mu  sync.Mutex
	seq int
}

func NewRenderer(logger *slog.Logger, outputDir string) *Renderer {
	return &Renderer{
		outputDir: outputDir,
		logger:    logger.With("module", "placeholder_renderer"),
		now:       time.Now,
	}
}

// WithClock replaces the time source used for file names.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now

	return r
}

func (r *Renderer) Render(ctx context.Context, prompt string, _ int, _ string) (models.RenderResult, error) {
	r.mu.Lock()
	r.seq++
	name := fmt.Sprintf("mock_video_%d_%d.mp4", r.now().Unix(), r.seq)
	r.mu.Unlock()

	path := filepath.Join(r.outputDir, name)

	r.logger.InfoContext(ctx, "Rendering placeholder clip", "prompt", prompt, "path", path)

	if err := touch(path); err != nil {
		return models.RenderResult{}, err
	}

	return models.RenderResult{
		Path:        path,
		Status:      models.VideoStatusCompleted,
		Placeholder: true,
	}, nil
}

// Concatenate creates an empty output file; placeholders have no content to join.
func (r *Renderer) Concatenate(ctx context.Context, paths []string, outputName string) (string, error) {
	path := filepath.Join(r.outputDir, outputName)

	r.logger.InfoContext(ctx, "Joining placeholder clips", "count", len(paths), "path", path)

	if err := touch(path); err != nil {
		return "", err
	}

	return path, nil
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create placeholder %s: %w", path, err)
	}

	return file.Close()
}
