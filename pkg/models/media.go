package models

import (
	"fmt"
	"time"
)

// VideoStatus represents the lifecycle of a video generation record.
type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// RenderResult is what a renderer returns for one segment.
type RenderResult struct {
	Path        string      `json:"path"`
	OperationID string      `json:"operation_id,omitempty"`
	Status      VideoStatus `json:"status"`
	Placeholder bool        `json:"placeholder"`
}

// Segment describes one rendered clip of the final video.
type Segment struct {
	Index       int    `json:"index"`
	Prompt      string `json:"prompt"`
	Path        string `json:"path"`
	Placeholder bool   `json:"placeholder"`
}

// VideoGeneration is the progress record of a video stage run.
type VideoGeneration struct {
	ID           int64       `json:"id"`
	StoryID      int64       `json:"story_id"`
	VideoPath    string      `json:"video_path,omitempty"`
	VideoURL     string      `json:"video_url,omitempty"`
	Status       VideoStatus `json:"status"`
	Segments     []Segment   `json:"segments"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// VideoGenerationUpdate carries the optional fields of a progress update.
// Empty values leave the stored field untouched.
type VideoGenerationUpdate struct {
	Status       VideoStatus
	VideoPath    string
	VideoURL     string
	ErrorMessage string
	Segments     []Segment
}

// Apply merges the update into the record.
func (v *VideoGeneration) Apply(update VideoGenerationUpdate, now time.Time) {
	if update.Status != "" {
		v.Status = update.Status
	}

	if update.VideoPath != "" {
		v.VideoPath = update.VideoPath
	}

	if update.VideoURL != "" {
		v.VideoURL = update.VideoURL
	}

	if update.ErrorMessage != "" {
		v.ErrorMessage = update.ErrorMessage
	}

	if update.Segments != nil {
		v.Segments = update.Segments
	}

	v.UpdatedAt = now
}

// Visibility is the privacy status of a published video.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
)

// ParseVisibility validates a visibility string.
func ParseVisibility(value string) (Visibility, error) {
	switch v := Visibility(value); v {
	case VisibilityPublic, VisibilityPrivate, VisibilityUnlisted:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, value)
	}
}

// UploadRequest is the input of a publisher upload.
type UploadRequest struct {
	VideoPath   string
	Title       string
	Description string
	Tags        []string
	Visibility  Visibility
}

// UploadResult is what the publisher returns after a successful upload.
type UploadResult struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
}

// UploadStatus represents the state of an upload record.
type UploadStatus string

const (
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// Upload is the persisted record of a published video.
type Upload struct {
	ID                int64        `json:"id"`
	StoryID           int64        `json:"story_id"`
	VideoGenerationID *int64       `json:"video_generation_id,omitempty"`
	VideoID           string       `json:"video_id"`
	VideoURL          string       `json:"video_url"`
	Title             string       `json:"title"`
	Status            UploadStatus `json:"status"`
	PrivacyStatus     Visibility   `json:"privacy_status"`
	ErrorMessage      string       `json:"error_message,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
