// Package models defines the core domain models for the episode pipeline.
package models

import "time"

// Story is a generated episode document.
type Story struct {
	Title        string   `json:"title"         validate:"required"`
	Dish         string   `json:"dish"          validate:"required"`
	Summary      string   `json:"summary"`
	Story        string   `json:"story"`
	CookingSteps []string `json:"cooking_steps"`
	VideoPrompts []string `json:"video_prompts" validate:"required,min=1"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
	Episode      int      `json:"episode,omitempty"`
	Date         string   `json:"date,omitempty"`
}

// StoryHistoryEntry is a previously produced episode, used as generation context.
type StoryHistoryEntry struct {
	Episode      int      `json:"episode"`
	Date         string   `json:"date"`
	Title        string   `json:"title"`
	Dish         string   `json:"dish"`
	Summary      string   `json:"summary"`
	Story        string   `json:"story"`
	CookingSteps []string `json:"cooking_steps"`
	VideoPrompts []string `json:"video_prompts"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
}

// HistoryEntry converts the story into a history entry. An empty date falls back to now.
func (s *Story) HistoryEntry(now time.Time) StoryHistoryEntry {
	date := s.Date
	if date == "" {
		date = now.Format(time.RFC3339)
	}

	return StoryHistoryEntry{
		Episode:      s.Episode,
		Date:         date,
		Title:        s.Title,
		Dish:         s.Dish,
		Summary:      s.Summary,
		Story:        s.Story,
		CookingSteps: s.CookingSteps,
		VideoPrompts: s.VideoPrompts,
		Tags:         s.Tags,
		Description:  s.Description,
	}
}

// StoryRecord is a persisted story row.
type StoryRecord struct {
	ID           int64     `json:"id"`
	Episode      int       `json:"episode"`
	Date         time.Time `json:"date"`
	Title        string    `json:"title"`
	Dish         string    `json:"dish"`
	Summary      string    `json:"summary"`
	Story        string    `json:"story"`
	CookingSteps []string  `json:"cooking_steps"`
	VideoPrompts []string  `json:"video_prompts"`
	Tags         []string  `json:"tags"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HistoryEntry converts the record into a history entry.
func (r *StoryRecord) HistoryEntry() StoryHistoryEntry {
	return StoryHistoryEntry{
		Episode:      r.Episode,
		Date:         r.Date.Format(time.RFC3339),
		Title:        r.Title,
		Dish:         r.Dish,
		Summary:      r.Summary,
		Story:        r.Story,
		CookingSteps: r.CookingSteps,
		VideoPrompts: r.VideoPrompts,
		Tags:         r.Tags,
		Description:  r.Description,
	}
}

// NewStoryRecord builds the row for a freshly generated story.
func NewStoryRecord(story *Story, episode int, now time.Time) *StoryRecord {
	return &StoryRecord{
		Episode:      episode,
		Date:         now,
		Title:        story.Title,
		Dish:         story.Dish,
		Summary:      story.Summary,
		Story:        story.Story,
		CookingSteps: story.CookingSteps,
		VideoPrompts: story.VideoPrompts,
		Tags:         story.Tags,
		Description:  story.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
