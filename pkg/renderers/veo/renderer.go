// Package veo renders clips with the Veo video model through the Gemini API.
package veo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"google.golang.org/genai"
)

var (
	// ErrRenderTimeout is returned when an operation is not done within the wait bound.
	ErrRenderTimeout = errors.New("video render timed out")

	// ErrNoVideo is returned when a finished operation carries no video.
	ErrNoVideo = errors.New("video render returned no video")

	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("google api key is not configured")

	// ErrOperationFailed is returned when the operation finished with an error.
	ErrOperationFailed = errors.New("video render operation failed")
)

// Joiner concatenates rendered clips.
type Joiner interface {
	Concatenate(ctx context.Context, paths []string, outputName string) (string, error)
}

// VideoModel is the part of the genai client the renderer drives.
type VideoModel interface {
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, video *genai.Video) ([]byte, error)
}

type genaiModel struct {
	client *genai.Client
}

func (g genaiModel) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return g.client.Models.GenerateVideos(ctx, model, prompt, image, cfg)
}

func (g genaiModel) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return g.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (g genaiModel) Download(ctx context.Context, video *genai.Video) ([]byte, error) {
	return g.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(video), nil)
}

// Renderer implements protocol.VideoRenderer.
type Renderer struct {
	videos       VideoModel
	model        string
	outputDir    string
	character    config.Character
	pollInterval time.Duration
	maxWait      time.Duration
	joiner       Joiner
	logger       *slog.Logger
	now          func() time.Time
}

// NewRenderer connects to the Gemini API with the configured key. Clips are
// joined by joiner.
func NewRenderer(ctx context.Context, logger *slog.Logger, cfg *config.Config, joiner Joiner) (*Renderer, error) {
	if cfg.Google.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.Google.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Google.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Google.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create video model client: %w", err)
	}

	return newRenderer(logger, cfg, genaiModel{client: client}, joiner), nil
}

func newRenderer(logger *slog.Logger, cfg *config.Config, videos VideoModel, joiner Joiner) *Renderer {
	return &Renderer{
		videos:       videos,
		model:        cfg.Google.VideoModel,
		outputDir:    cfg.OutputDir,
		character:    cfg.Character,
		pollInterval: cfg.Video.PollInterval,
		maxWait:      cfg.Video.MaxWait,
		joiner:       joiner,
		logger:       logger.With("module", "veo_renderer"),
		now:          time.Now,
	}
}

// Render submits the clip, waits for the operation and downloads the video.
func (r *Renderer) Render(ctx context.Context, prompt string, durationSeconds int, aspectRatio string) (models.RenderResult, error) {
	image, err := r.characterImage()
	if err != nil {
		return models.RenderResult{}, err
	}

	duration := int32(durationSeconds) //nolint:gosec // bounded by config validation

	op, err := r.videos.GenerateVideos(ctx, r.model, FullPrompt(prompt, r.character, aspectRatio), image, &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		AspectRatio:     aspectRatio,
		DurationSeconds: &duration,
		EnhancePrompt:   true,
		NegativePrompt:  r.character.NegativePrompt,
	})
	if err != nil {
		return models.RenderResult{}, fmt.Errorf("failed to submit render: %w", err)
	}

	r.logger.InfoContext(ctx, "Render submitted", "operation", op.Name)

	done, err := r.wait(ctx, op)
	if err != nil {
		return models.RenderResult{OperationID: op.Name, Status: models.VideoStatusFailed}, err
	}

	video := firstVideo(done)
	if video == nil {
		return models.RenderResult{OperationID: op.Name, Status: models.VideoStatusFailed}, ErrNoVideo
	}

	data := video.VideoBytes
	if len(data) == 0 {
		data, err = r.videos.Download(ctx, video)
		if err != nil {
			return models.RenderResult{OperationID: op.Name, Status: models.VideoStatusFailed}, fmt.Errorf("failed to download video: %w", err)
		}
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("veo3_%d.mp4", r.now().UnixNano()))
	if err := writeVideo(path, data); err != nil {
		return models.RenderResult{OperationID: op.Name, Status: models.VideoStatusFailed}, err
	}

	r.logger.InfoContext(ctx, "Render downloaded", "operation", op.Name, "path", path)

	return models.RenderResult{
		Path:        path,
		OperationID: op.Name,
		Status:      models.VideoStatusCompleted,
	}, nil
}

// Concatenate delegates to the configured joiner.
func (r *Renderer) Concatenate(ctx context.Context, paths []string, outputName string) (string, error) {
	return r.joiner.Concatenate(ctx, paths, outputName)
}

// wait polls op with a fixed delay until it is done or maxWait has elapsed.
func (r *Renderer) wait(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	deadline := r.now().Add(r.maxWait)

	for !op.Done {
		if !r.now().Before(deadline) {
			return op, fmt.Errorf("%w: operation %s after %s", ErrRenderTimeout, op.Name, r.maxWait)
		}

		select {
		case <-ctx.Done():
			return op, ctx.Err()
		case <-time.After(r.pollInterval):
		}

		r.logger.DebugContext(ctx, "Polling render", "operation", op.Name)

		next, err := r.videos.GetVideosOperation(ctx, op)
		if err != nil {
			return op, fmt.Errorf("failed to poll render: %w", err)
		}

		if next.Name == "" {
			next.Name = op.Name
		}

		op = next
	}

	if len(op.Error) > 0 {
		return op, fmt.Errorf("%w: %v", ErrOperationFailed, op.Error["message"])
	}

	return op, nil
}

func firstVideo(op *genai.GenerateVideosOperation) *genai.Video {
	if op.Response == nil {
		return nil
	}

	for _, generated := range op.Response.GeneratedVideos {
		if generated != nil && generated.Video != nil {
			return generated.Video
		}
	}

	return nil
}

// characterImage returns the reference image of the character, or nil.
func (r *Renderer) characterImage() (*genai.Image, error) {
	imagePath := r.character.ImagePath()
	if imagePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(imagePath) // #nosec G304 -- configured path
	if err != nil {
		return nil, fmt.Errorf("failed to read character image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &genai.Image{ImageBytes: data, MIMEType: mimeType}, nil
}

// FullPrompt decorates a segment prompt with the character style.
func FullPrompt(prompt string, character config.Character, aspectRatio string) string {
	return fmt.Sprintf("%s, %s, high quality, cute character, cooking video, shorts format, %s aspect ratio, "+
		"no dialogue, no speech, no narration, sound effects only, ambient cooking sounds, avoid: %s",
		prompt, character.Style, aspectRatio, character.NegativePrompt)
}

func writeVideo(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write video file: %w", err)
	}

	return nil
}
