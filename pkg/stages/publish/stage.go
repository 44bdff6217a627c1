// Package publish runs the upload stage.
package publish

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

// ErrMissingVideoPath is the failure of a run without a file to upload.
var ErrMissingVideoPath = errors.New("video path is required")

// Input of a publish stage run.
type Input struct {
	VideoPath         string
	Title             string
	Description       string
	Tags              []string
	Visibility        models.Visibility
	StoryID           *int64
	VideoGenerationID *int64
}

// Output of a successful publish stage run.
type Output struct {
	ExternalID     string `json:"external_id"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	UploadRecordID *int64 `json:"upload_record_id,omitempty"`
}

type Stage struct {
	publisher protocol.Publisher
	uploads   persistence.UploadRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewStage returns a publish stage. uploads may be nil.
func NewStage(logger *slog.Logger, publisher protocol.Publisher, uploads persistence.UploadRepository) *Stage {
	return &Stage{
		publisher: publisher,
		uploads:   uploads,
		logger:    logger.With("module", "publish_stage"),
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *Stage) WithClock(now func() time.Time) *Stage {
	s.now = now

	return s
}

// Run uploads the video once. Failures are not retried.
func (s *Stage) Run(ctx context.Context, in Input) stage.Result[Output] {
	visibility, err := models.ParseVisibility(string(in.Visibility))
	if err != nil {
		return stage.FailedErr[Output](err)
	}

	if in.VideoPath == "" {
		return stage.FailedErr[Output](ErrMissingVideoPath)
	}

	result, err := s.publisher.Upload(ctx, models.UploadRequest{
		VideoPath:   in.VideoPath,
		Title:       in.Title,
		Description: in.Description,
		Tags:        in.Tags,
		Visibility:  visibility,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Upload failed", "path", in.VideoPath, "error", err)

		return stage.FailedErr[Output](err)
	}

	output := Output{ExternalID: result.VideoID, URL: result.URL, Title: result.Title}

	if in.StoryID != nil && s.uploads != nil {
		record := &models.Upload{
			StoryID:           *in.StoryID,
			VideoGenerationID: in.VideoGenerationID,
			VideoID:           result.VideoID,
			VideoURL:          result.URL,
			Title:             result.Title,
			Status:            models.UploadStatusCompleted,
			PrivacyStatus:     visibility,
			CreatedAt:         s.now(),
			UpdatedAt:         s.now(),
		}

		if err := s.uploads.Create(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to save upload", "video_id", result.VideoID, "error", err)

			return stage.Failed[Output](fmt.Sprintf("failed to save upload: %v", err))
		}

		output.UploadRecordID = &record.ID
	}

	s.logger.InfoContext(ctx, "Video published", "video_id", result.VideoID, "url", result.URL)

	return stage.Success(output)
}
