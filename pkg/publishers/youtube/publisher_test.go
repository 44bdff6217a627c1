package youtube

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestPublisher(t *testing.T, handler http.HandlerFunc) *Publisher {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	publisher, err := NewPublisher(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), config.YouTubeConfig{},
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	return publisher
}

func TestShortsVideo(t *testing.T) {
	video := ShortsVideo(models.UploadRequest{
		Title:      "넝심이의 김치볶음밥",
		Tags:       []string{"김치"},
		Visibility: models.VisibilityPrivate,
	})

	assert.Equal(t, "넝심이의 김치볶음밥 #Shorts", video.Snippet.Title)
	assert.Equal(t, []string{"김치", "Shorts", "쇼츠"}, video.Snippet.Tags)
	assert.Equal(t, "24", video.Snippet.CategoryId)
	assert.Equal(t, "private", video.Status.PrivacyStatus)
	assert.False(t, video.Status.SelfDeclaredMadeForKids)
}

func TestUpload(t *testing.T) {
	var body string

	publisher := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/youtube/v3/videos") {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		data, _ := io.ReadAll(r.Body)
		body = string(data)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "abc123",
			"snippet": map[string]any{"title": "넝심이의 라면 #Shorts"},
		})
	})

	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4"), 0600))

	result, err := publisher.Upload(context.Background(), models.UploadRequest{
		VideoPath:  path,
		Title:      "넝심이의 라면",
		Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", result.URL)
	assert.Equal(t, "넝심이의 라면 #Shorts", result.Title)
	assert.Contains(t, body, "#Shorts")
}

func TestUpload_MissingFile(t *testing.T) {
	publisher := newTestPublisher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := publisher.Upload(context.Background(), models.UploadRequest{VideoPath: "/nonexistent.mp4"})
	assert.Error(t, err)
}

func TestUpload_APIError(t *testing.T) {
	publisher := newTestPublisher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quotaExceeded"}}`))
	})

	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4"), 0600))

	_, err := publisher.Upload(context.Background(), models.UploadRequest{VideoPath: path, Title: "t", Visibility: models.VisibilityPublic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quotaExceeded")
}

func TestInfo(t *testing.T) {
	publisher := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("id") != "abc123" {
			_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{map[string]any{
				"id":         "abc123",
				"snippet":    map[string]any{"title": "라면 #Shorts"},
				"statistics": map[string]any{"viewCount": "42"},
			}},
		})
	})

	info, err := publisher.Info(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "라면 #Shorts", info["title"])
	assert.Equal(t, uint64(42), info["view_count"])

	_, err = publisher.Info(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestNewPublisher_NotConfigured(t *testing.T) {
	_, err := NewPublisher(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), config.YouTubeConfig{ClientID: "id"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAuthURL(t *testing.T) {
	_, err := AuthURL(config.YouTubeConfig{})
	assert.ErrorIs(t, err, ErrMissingClient)

	url, err := AuthURL(config.YouTubeConfig{ClientID: "client", ClientSecret: "secret", RedirectURL: "urn:ietf:wg:oauth:2.0:oob"})
	require.NoError(t, err)
	assert.Contains(t, url, "client_id=client")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "youtube.upload")
}
