// Package story runs the story generation stage.
package story

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/protocol"
	"github.com/dukex/episodic/pkg/stage"
)

// Input of a story stage run. History is the prompt context and may be a
// window of the latest episodes; Prior counts every episode made so far. A nil
// Episode is assigned NextEpisode(Prior, History).
type Input struct {
	Episode *int
	History []models.StoryHistoryEntry
	Prior   int
	Persist bool
}

// Output of a successful story stage run.
type Output struct {
	Story    *models.Story              `json:"story"`
	RecordID *int64                     `json:"record_id,omitempty"`
	Episode  int                        `json:"episode"`
	History  []models.StoryHistoryEntry `json:"history"`
}

type Stage struct {
	generator protocol.StoryGenerator
	stories   persistence.StoryRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewStage returns a story stage. stories may be nil when nothing is persisted.
func NewStage(logger *slog.Logger, generator protocol.StoryGenerator, stories persistence.StoryRepository) *Stage {
	return &Stage{
		generator: generator,
		stories:   stories,
		logger:    logger.With("module", "story_stage"),
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *Stage) WithClock(now func() time.Time) *Stage {
	s.now = now

	return s
}

// Run generates the story of the next (or given) episode.
func (s *Stage) Run(ctx context.Context, in Input) stage.Result[Output] {
	episode := NextEpisode(in.Prior, in.History)
	if in.Episode != nil {
		episode = *in.Episode
	}

	logger := s.logger.With("episode", episode)

	s.generator.LoadHistory(in.History)

	story, err := s.generator.Generate(ctx, episode, in.History)
	if err != nil {
		logger.ErrorContext(ctx, "Story generation failed", "error", err)

		return stage.FailedErr[Output](err)
	}

	if story == nil {
		logger.ErrorContext(ctx, "Story generator returned no story")

		return stage.Failed[Output]("story generator returned no story")
	}

	story.Episode = episode
	now := s.now()

	history := make([]models.StoryHistoryEntry, 0, len(in.History)+1)
	history = append(history, in.History...)
	history = append(history, story.HistoryEntry(now))

	output := Output{Story: story, Episode: episode, History: history}

	if in.Persist && s.stories != nil {
		record := models.NewStoryRecord(story, episode, now)

		if err := s.stories.Create(ctx, record); err != nil {
			logger.ErrorContext(ctx, "Failed to save story", "error", err)

			return stage.Failed[Output](fmt.Sprintf("failed to save story: %v", err))
		}

		output.RecordID = &record.ID
	}

	logger.InfoContext(ctx, "Story generated", "title", story.Title, "dish", story.Dish)

	return stage.Success(output)
}

// NextEpisode is the episode following prior episodes. history may be a
// window of the latest episodes, so it only counts when prior is behind it.
func NextEpisode(prior int, history []models.StoryHistoryEntry) int {
	return max(prior, len(history)) + 1
}

// Count returns the number of stored stories, or 0 when no story repository
// is configured.
func (s *Stage) Count(ctx context.Context) (int, error) {
	if s.stories == nil {
		return 0, nil
	}

	count, err := s.stories.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}

	return count, nil
}

// History returns the latest limit episodes ordered by episode. It is empty
// when no story repository is configured.
func (s *Stage) History(ctx context.Context, limit int) ([]models.StoryHistoryEntry, error) {
	if s.stories == nil {
		return []models.StoryHistoryEntry{}, nil
	}

	records, err := s.stories.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load story history: %w", err)
	}

	history := make([]models.StoryHistoryEntry, 0, len(records))
	for _, record := range records {
		history = append(history, record.HistoryEntry())
	}

	return history, nil
}
