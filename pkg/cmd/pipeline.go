package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/eventbus"
	"github.com/dukex/episodic/pkg/generators/gemini"
	"github.com/dukex/episodic/pkg/protocol"
	"github.com/dukex/episodic/pkg/publishers/youtube"
	"github.com/dukex/episodic/pkg/renderers/ffmpeg"
	"github.com/dukex/episodic/pkg/renderers/placeholder"
	"github.com/dukex/episodic/pkg/renderers/veo"
	"github.com/dukex/episodic/pkg/stages/publish"
	"github.com/dukex/episodic/pkg/stages/story"
	"github.com/dukex/episodic/pkg/stages/video"
	"github.com/dukex/episodic/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline is the wired episode workflow with the clients it owns.
type Pipeline struct {
	Orchestrator *workflow.Orchestrator
	Publisher    protocol.Publisher

	story *gemini.Client
}

// NewPublisher connects to YouTube with the configured refresh token.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*youtube.Publisher, error) {
	if !cfg.YouTube.Configured() {
		return nil, youtube.ErrNotConfigured
	}

	return youtube.NewPublisher(ctx, logger, cfg.YouTube)
}

// NewRenderer returns the Veo renderer, or the placeholder renderer in dry
// run mode and when no API key is configured.
//
//nolint:ireturn // the configuration decides the implementation
func NewRenderer(ctx context.Context, logger *slog.Logger, cfg *config.Config) (protocol.VideoRenderer, *placeholder.Renderer, error) {
	fallback := placeholder.NewRenderer(logger, cfg.OutputDir)

	if cfg.Video.DryRun {
		logger.Info("Dry run, rendering placeholders only")

		return fallback, fallback, nil
	}

	joiner := ffmpeg.NewConcatenator(logger, cfg.Video.FFmpegPath, cfg.OutputDir)

	renderer, err := veo.NewRenderer(ctx, logger, cfg, joiner)
	if errors.Is(err, veo.ErrMissingAPIKey) {
		logger.Warn("Google API key not configured, rendering placeholders")

		return fallback, fallback, nil
	}

	if err != nil {
		return nil, nil, err
	}

	return renderer, fallback, nil
}

// NewPipeline wires the stages and the orchestrator.
func NewPipeline(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	store *Store,
	bus eventbus.EventBus,
	tracer trace.Tracer,
) (*Pipeline, error) {
	client, err := gemini.NewClient(ctx, cfg.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to create story model: %w", err)
	}

	renderer, fallback, err := NewRenderer(ctx, logger, cfg)
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	publisher, err := NewPublisher(ctx, logger, cfg)
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	generator := gemini.NewGenerator(logger, client, cfg.Character)

	orchestrator := workflow.NewOrchestrator(logger, workflow.Dependencies{
		Config:     cfg,
		Story:      story.NewStage(logger, generator, store.StoryRepository()),
		Video:      video.NewStage(logger, renderer, fallback, store.VideoGenerationRepository()),
		Publish:    publish.NewStage(logger, publisher, store.UploadRepository()),
		Executions: store.ExecutionRepository(),
		History:    store.History,
		EventBus:   bus,
		Tracer:     tracer,
	})

	return &Pipeline{Orchestrator: orchestrator, Publisher: publisher, story: client}, nil
}

// Close releases the story model client.
func (p *Pipeline) Close() error {
	return p.story.Close()
}
