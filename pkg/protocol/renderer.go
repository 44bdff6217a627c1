package protocol

import (
	"context"

	"github.com/dukex/episodic/pkg/models"
)

// VideoRenderer renders single clips and joins them.
type VideoRenderer interface {
	// Render blocks until the clip for prompt is available on disk.
	Render(ctx context.Context, prompt string, durationSeconds int, aspectRatio string) (models.RenderResult, error)

	// Concatenate joins paths in the given order into outputName and returns the final path.
	Concatenate(ctx context.Context, paths []string, outputName string) (string, error)
}
