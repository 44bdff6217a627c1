package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(tempDir string) (*fiber.App, *file.Persistence) {
	persistence := file.NewPersistence(tempDir)

	app := NewAPI(
		slog.Default(),
		persistence,
		nil,
	)

	return app.App(), persistence
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Episodic API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_GetExecutions_WithData(t *testing.T) {
	tempDir := t.TempDir()
	app, persistence := setupTestApp(tempDir)

	started := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	err := persistence.ExecutionRepository().Create(context.Background(), &models.Execution{
		ID:        "exec-1",
		Status:    models.ExecutionStatusRunning,
		StartedAt: started,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/executions", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "exec-1")
}

func TestAPI_StartEpisode_WithoutPipeline(t *testing.T) {
	app, _ := setupTestApp(t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/episodes", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPI_Health_ReportsPersistence(t *testing.T) {
	app, _ := setupTestApp(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	var payload map[string]any

	err = json.NewDecoder(resp.Body).Decode(&payload)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", payload["status"])
}

func TestAPI_CORS_Headers(t *testing.T) {
	app, _ := setupTestApp(t.TempDir())

	req := httptest.NewRequest(http.MethodOptions, "/executions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
