// Package gemini generates episode stories with the Gemini language model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("google api key is not configured")

// TextModel completes a prompt.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator implements protocol.StoryGenerator.
type Generator struct {
	model     TextModel
	character config.Character
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	history []models.StoryHistoryEntry
}

// NewGenerator returns a generator using model for completions.
func NewGenerator(logger *slog.Logger, model TextModel, character config.Character) *Generator {
	return &Generator{
		model:     model,
		character: character,
		logger:    logger.With("module", "gemini_generator"),
		now:       time.Now,
		history:   []models.StoryHistoryEntry{},
	}
}

// WithClock replaces the time source used to date stories.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now

	return g
}

// LoadHistory replaces the generator history with a copy of history.
func (g *Generator) LoadHistory(history []models.StoryHistoryEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.history = append([]models.StoryHistoryEntry{}, history...)
}

// History returns a copy of the generator history.
func (g *Generator) History() []models.StoryHistoryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]models.StoryHistoryEntry{}, g.history...)
}

// Generate asks the model for the story of episode. An unparseable answer
// becomes the fallback story; only model call failures are returned.
func (g *Generator) Generate(ctx context.Context, episode int, history []models.StoryHistoryEntry) (*models.Story, error) {
	recent := history
	if history != nil {
		g.LoadHistory(history)
	} else {
		recent = g.History()
	}

	prompt := BuildPrompt(g.character, episode, recent)

	g.logger.InfoContext(ctx, "Generating story", "episode", episode)

	text, err := g.model.GenerateText(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "Story generation failed", "episode", episode, "error", err)

		return nil, fmt.Errorf("failed to generate story: %w", err)
	}

	story, err := ParseStory(text, episode, g.character, g.now())
	if err != nil {
		g.logger.WarnContext(ctx, "Model returned a malformed story, using fallback", "episode", episode, "error", err)
	}

	g.mu.Lock()
	g.history = append(g.history, story.HistoryEntry(g.now()))
	g.mu.Unlock()

	return story, nil
}

// Client is the genai backed TextModel.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient connects to the Gemini API.
func NewClient(ctx context.Context, cfg config.GoogleConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client, model: cfg.StoryModel}, nil
}

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	return responseText(resp), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder

	if resp == nil {
		return ""
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}

		break
	}

	return text.String()
}
