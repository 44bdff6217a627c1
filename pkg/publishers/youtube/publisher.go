// Package youtube publishes finished episodes as YouTube Shorts.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	shortsTag             = "#Shorts"
	categoryEntertainment = "24"
	defaultLanguage       = "ko"
)

// ErrVideoNotFound is returned by Info for an unknown video id.
var ErrVideoNotFound = errors.New("video not found")

// Publisher implements protocol.Publisher.
type Publisher struct {
	service *youtube.Service
	logger  *slog.Logger
}

// NewPublisher authorizes with the channel refresh token. When opts are
// given they replace the default credentials.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg config.YouTubeConfig, opts ...option.ClientOption) (*Publisher, error) {
	if len(opts) == 0 {
		source, err := tokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}

		opts = []option.ClientOption{option.WithTokenSource(source)}
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Publisher{
		service: service,
		logger:  logger.With("module", "youtube_publisher"),
	}, nil
}

// Upload sends the video as a Short.
func (p *Publisher) Upload(ctx context.Context, request models.UploadRequest) (*models.UploadResult, error) {
	file, err := os.Open(request.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	video := ShortsVideo(request)

	p.logger.InfoContext(ctx, "Uploading video", "title", video.Snippet.Title, "privacy", video.Status.PrivacyStatus)

	uploaded, err := p.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload failed: %w", err)
	}

	title := video.Snippet.Title
	if uploaded.Snippet != nil && uploaded.Snippet.Title != "" {
		title = uploaded.Snippet.Title
	}

	p.logger.InfoContext(ctx, "Video uploaded", "video_id", uploaded.Id)

	return &models.UploadResult{
		VideoID: uploaded.Id,
		URL:     WatchURL(uploaded.Id),
		Title:   title,
	}, nil
}

// Info returns the snippet and statistics of an uploaded video.
func (p *Publisher) Info(ctx context.Context, externalID string) (map[string]any, error) {
	response, err := p.service.Videos.List([]string{"snippet", "statistics"}).
		Id(externalID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}

	if len(response.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, externalID)
	}

	item := response.Items[0]
	info := map[string]any{"id": item.Id}

	if item.Snippet != nil {
		info["title"] = item.Snippet.Title
		info["description"] = item.Snippet.Description
		info["published_at"] = item.Snippet.PublishedAt
		info["tags"] = item.Snippet.Tags
	}

	if item.Statistics != nil {
		info["view_count"] = item.Statistics.ViewCount
		info["like_count"] = item.Statistics.LikeCount
		info["comment_count"] = item.Statistics.CommentCount
	}

	return info, nil
}

// ShortsVideo builds the upload metadata: the title gets the Shorts marker
// and the tags the Shorts keywords.
func ShortsVideo(request models.UploadRequest) *youtube.Video {
	tags := append(append([]string{}, request.Tags...), "Shorts", "쇼츠")

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:           request.Title + " " + shortsTag,
			Description:     request.Description,
			Tags:            tags,
			CategoryId:      categoryEntertainment,
			DefaultLanguage: defaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           string(request.Visibility),
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// WatchURL is the public URL of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
