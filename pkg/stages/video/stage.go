// Package video runs the segment rendering stage.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/protocol"
	"github.com/dukex/episodic/pkg/stage"
)

// ErrNoSegments is the failure of a run where no segment produced a file.
var ErrNoSegments = errors.New("no video segments were rendered")

// Input of a video stage run.
type Input struct {
	Prompts     []string
	Duration    int
	AspectRatio string

	// OutputName defaults to video_<unix>.mp4.
	OutputName string

	// StoryID enables progress tracking in the video generation record.
	StoryID *int64
}

// Output of a successful video stage run.
type Output struct {
	VideoPath    string           `json:"video_path"`
	RecordID     *int64           `json:"record_id,omitempty"`
	SegmentCount int              `json:"segment_count"`
	Segments     []models.Segment `json:"segments"`
}

type Stage struct {
	renderer protocol.VideoRenderer
	fallback protocol.VideoRenderer
	records  persistence.VideoGenerationRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewStage returns a video stage. fallback renders the placeholder of a
// segment the renderer failed on; records may be nil.
func NewStage(
	logger *slog.Logger,
	renderer protocol.VideoRenderer,
	fallback protocol.VideoRenderer,
	records persistence.VideoGenerationRepository,
) *Stage {
	return &Stage{
		renderer: renderer,
		fallback: fallback,
		records:  records,
		logger:   logger.With("module", "video_stage"),
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Stage) WithClock(now func() time.Time) *Stage {
	s.now = now

	return s
}

// Run renders every prompt in order and joins the clips.
func (s *Stage) Run(ctx context.Context, in Input) stage.Result[Output] {
	outputName := in.OutputName
	if outputName == "" {
		outputName = fmt.Sprintf("video_%d.mp4", s.now().Unix())
	}

	aspectRatio := in.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "9:16"
	}

	var recordID *int64

	if in.StoryID != nil && s.records != nil {
		record := &models.VideoGeneration{
			StoryID:   *in.StoryID,
			Status:    models.VideoStatusProcessing,
			Segments:  []models.Segment{},
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		}

		if err := s.records.Create(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to create video generation record", "error", err)

			return stage.Failed[Output](fmt.Sprintf("failed to create video generation record: %v", err))
		}

		recordID = &record.ID
	}

	segments := s.renderSegments(ctx, in.Prompts, in.Duration, aspectRatio)

	videoPath, err := s.join(ctx, segments, outputName)
	if err != nil {
		s.markFailed(ctx, recordID, segments, err)

		return stage.FailedErr[Output](err)
	}

	if recordID != nil {
		err := s.records.Update(ctx, *recordID, models.VideoGenerationUpdate{
			Status:    models.VideoStatusCompleted,
			VideoPath: videoPath,
			Segments:  segments,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to complete video generation record", "error", err)

			return stage.Failed[Output](fmt.Sprintf("failed to update video generation record: %v", err))
		}
	}

	s.logger.InfoContext(ctx, "Video ready", "path", videoPath, "segments", len(segments))

	return stage.Success(Output{
		VideoPath:    videoPath,
		RecordID:     recordID,
		SegmentCount: len(segments),
		Segments:     segments,
	})
}

// renderSegments renders prompts one at a time. A failed render is replaced
// by a placeholder; a segment without any file is left out.
func (s *Stage) renderSegments(ctx context.Context, prompts []string, duration int, aspectRatio string) []models.Segment {
	segments := make([]models.Segment, 0, len(prompts))

	for i, prompt := range prompts {
		logger := s.logger.With("segment", i+1, "total", len(prompts))
		logger.InfoContext(ctx, "Rendering segment")

		result, err := s.renderer.Render(ctx, prompt, duration, aspectRatio)
		if err != nil || result.Path == "" {
			logger.WarnContext(ctx, "Segment render failed, using placeholder", "error", err)

			result, err = s.placeholder(ctx, prompt, duration, aspectRatio)
			if err != nil || result.Path == "" {
				logger.ErrorContext(ctx, "Placeholder render failed, skipping segment", "error", err)

				continue
			}
		}

		segments = append(segments, models.Segment{
			Index:       i,
			Prompt:      prompt,
			Path:        result.Path,
			Placeholder: result.Placeholder,
		})
	}

	return segments
}

func (s *Stage) placeholder(ctx context.Context, prompt string, duration int, aspectRatio string) (models.RenderResult, error) {
	if s.fallback == nil {
		return models.RenderResult{}, errors.New("no placeholder renderer")
	}

	result, err := s.fallback.Render(ctx, prompt, duration, aspectRatio)
	result.Placeholder = true

	return result, err
}

func (s *Stage) join(ctx context.Context, segments []models.Segment, outputName string) (string, error) {
	switch len(segments) {
	case 0:
		return "", ErrNoSegments
	case 1:
		return segments[0].Path, nil
	}

	paths := make([]string, 0, len(segments))
	for _, segment := range segments {
		paths = append(paths, segment.Path)
	}

	path, err := s.renderer.Concatenate(ctx, paths, outputName)
	if err != nil {
		return "", fmt.Errorf("failed to concatenate segments: %w", err)
	}

	return path, nil
}

func (s *Stage) markFailed(ctx context.Context, recordID *int64, segments []models.Segment, cause error) {
	if recordID == nil {
		return
	}

	err := s.records.Update(ctx, *recordID, models.VideoGenerationUpdate{
		Status:       models.VideoStatusFailed,
		ErrorMessage: cause.Error(),
		Segments:     segments,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark video generation as failed", "error", err)
	}
}
