// Package protocol defines the collaborators the episode pipeline depends on.
package protocol

import (
	"context"

	"github.com/dukex/episodic/pkg/models"
)

// StoryGenerator produces a new story document conditioned on prior episodes.
type StoryGenerator interface {
	// LoadHistory primes the generator with the previous episodes.
	LoadHistory(history []models.StoryHistoryEntry)

	// Generate creates the story of the given episode. Malformed model output
	// is recovered by the generator; only call failures are returned.
	Generate(ctx context.Context, episode int, history []models.StoryHistoryEntry) (*models.Story, error)
}
