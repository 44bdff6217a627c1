package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence/file"
	"github.com/dukex/episodic/pkg/web"
	"github.com/dukex/episodic/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	request workflow.RunRequest
	err     error
}

func (s *fakeStarter) Start(_ context.Context, request workflow.RunRequest) (string, error) {
	s.request = request

	return "exec-42", s.err
}

func setupTestApp(t *testing.T, starter web.Starter) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	handlers := web.NewAPIHandlers(store, starter, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return app, store
}

func do(t *testing.T, app *fiber.App, method, target string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func TestGetExecutions(t *testing.T) {
	app, store := setupTestApp(t, nil)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.ExecutionRepository().Create(ctx, models.NewExecution(id, nil, start.Add(time.Duration(i)*time.Minute))))
	}

	_, err := store.ExecutionRepository().Update(ctx, "a", models.ExecutionUpdate{Status: models.ExecutionStatusFailed}, start.Add(time.Hour))
	require.NoError(t, err)

	status, body := do(t, app, http.MethodGet, "/executions?limit=2", nil)
	require.Equal(t, http.StatusOK, status)

	var response web.ExecutionsResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, "c", response.Executions[0].ID)

	status, body = do(t, app, http.MethodGet, "/executions?status=failed", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "a", response.Executions[0].ID)

	status, _ = do(t, app, http.MethodGet, "/executions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetExecution(t *testing.T) {
	app, store := setupTestApp(t, nil)
	require.NoError(t, store.ExecutionRepository().Create(context.Background(), models.NewExecution("exec-1", nil, time.Now())))

	status, body := do(t, app, http.MethodGet, "/executions/exec-1", nil)
	require.Equal(t, http.StatusOK, status)

	var execution models.Execution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)

	status, body = do(t, app, http.MethodGet, "/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "execution_not_found")
}

func TestGetStories(t *testing.T) {
	app, store := setupTestApp(t, nil)
	ctx := context.Background()

	for episode := 1; episode <= 3; episode++ {
		record := models.NewStoryRecord(&models.Story{Title: "t", Dish: "d"}, episode, time.Now())
		require.NoError(t, store.StoryRepository().Create(ctx, record))
	}

	status, body := do(t, app, http.MethodGet, "/stories?limit=2", nil)
	require.Equal(t, http.StatusOK, status)

	var response web.StoriesResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, 2, response.Stories[0].Episode)
	assert.Equal(t, 3, response.Stories[1].Episode)

	status, _ = do(t, app, http.MethodGet, "/stories/3", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = do(t, app, http.MethodGet, "/stories/9", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "story_not_found")

	status, _ = do(t, app, http.MethodGet, "/stories/zero", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStartEpisode(t *testing.T) {
	starter := &fakeStarter{}
	app, _ := setupTestApp(t, starter)

	episode := 7
	status, body := do(t, app, http.MethodPost, "/episodes", web.StartEpisodeRequest{Episode: &episode, Visibility: "private"})
	require.Equal(t, http.StatusAccepted, status)

	var response web.StartEpisodeResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Equal(t, "exec-42", response.ExecutionID)
	assert.Equal(t, "running", response.Status)
	assert.Equal(t, 7, *starter.request.Episode)
	assert.Equal(t, models.VisibilityPrivate, starter.request.Visibility)

	status, _ = do(t, app, http.MethodPost, "/episodes", nil)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Nil(t, starter.request.Episode)
}

func TestStartEpisode_Validation(t *testing.T) {
	app, _ := setupTestApp(t, &fakeStarter{})

	status, _ := do(t, app, http.MethodPost, "/episodes", web.StartEpisodeRequest{Visibility: "friends"})
	assert.Equal(t, http.StatusBadRequest, status)

	zero := 0
	status, _ = do(t, app, http.MethodPost, "/episodes", web.StartEpisodeRequest{Episode: &zero})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStartEpisode_Errors(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, _ := do(t, app, http.MethodPost, "/episodes", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	app, _ = setupTestApp(t, &fakeStarter{err: errors.New("ledger unavailable")})

	status, _ = do(t, app, http.MethodPost, "/episodes", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthy")
}
