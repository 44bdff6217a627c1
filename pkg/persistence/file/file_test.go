package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
	assert.Nil(t, fp.Migrator())
}

func TestPersistence_HealthCheck(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	require.NoError(t, fp.HealthCheck(t.Context()))
	require.NoError(t, fp.Close(t.Context()))

	missing := NewPersistence(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, missing.HealthCheck(t.Context()), os.ErrNotExist)
}

func TestStoryRepository_CreateAndRecent(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	repo := fp.StoryRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, episode := range []int{3, 1, 2} {
		record := models.NewStoryRecord(&models.Story{
			Title:        "Episode",
			Dish:         "dish",
			VideoPrompts: []string{"prompt"},
		}, episode, now)
		require.NoError(t, repo.Create(t.Context(), record))
		assert.NotZero(t, record.ID)
	}

	recent, err := repo.Recent(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].Episode)
	assert.Equal(t, 3, recent[1].Episode)

	count, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byEpisode, err := repo.GetByEpisode(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt"}, byEpisode.VideoPrompts)

	fetched, err := repo.GetByID(t.Context(), byEpisode.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.Episode)
}

func TestStoryRepository_DuplicateEpisode(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	repo := fp.StoryRepository()
	story := &models.Story{Title: "t", Dish: "d", VideoPrompts: []string{"p"}}

	require.NoError(t, repo.Create(t.Context(), models.NewStoryRecord(story, 1, time.Now())))

	err := repo.Create(t.Context(), models.NewStoryRecord(story, 1, time.Now()))
	assert.ErrorIs(t, err, persistence.ErrDuplicateEpisode)
}

func TestStoryRepository_NotFound(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	_, err := fp.StoryRepository().GetByID(t.Context(), 99)
	assert.ErrorIs(t, err, persistence.ErrStoryNotFound)

	_, err = fp.StoryRepository().GetByEpisode(t.Context(), 99)
	assert.ErrorIs(t, err, persistence.ErrStoryNotFound)
}

func TestVideoGenerationRepository_Update(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	repo := fp.VideoGenerationRepository()

	record := &models.VideoGeneration{StoryID: 1, Status: models.VideoStatusProcessing}
	require.NoError(t, repo.Create(t.Context(), record))

	segments := []models.Segment{{Index: 0, Prompt: "p", Path: "/a.mp4"}}
	require.NoError(t, repo.Update(t.Context(), record.ID, models.VideoGenerationUpdate{
		Status:    models.VideoStatusCompleted,
		VideoPath: "/final.mp4",
		Segments:  segments,
	}))

	fetched, err := repo.GetByID(t.Context(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoStatusCompleted, fetched.Status)
	assert.Equal(t, "/final.mp4", fetched.VideoPath)
	assert.Equal(t, segments, fetched.Segments)

	err = repo.Update(t.Context(), 404, models.VideoGenerationUpdate{Status: models.VideoStatusFailed})
	assert.ErrorIs(t, err, persistence.ErrVideoGenerationNotFound)
}

func TestUploadRepository_DuplicateVideoID(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	repo := fp.UploadRepository()

	upload := &models.Upload{StoryID: 1, VideoID: "abc", Status: models.UploadStatusCompleted}
	require.NoError(t, repo.Create(t.Context(), upload))

	err := repo.Create(t.Context(), &models.Upload{StoryID: 2, VideoID: "abc"})
	assert.ErrorIs(t, err, persistence.ErrDuplicateVideoID)

	fetched, err := repo.GetByVideoID(t.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, upload.ID, fetched.ID)
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	repo := fp.ExecutionRepository()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	execution := models.NewExecution("exec-1", nil, start)
	require.NoError(t, repo.Create(t.Context(), execution))
	require.Error(t, repo.Create(t.Context(), execution))

	storyID := int64(5)
	updated, err := repo.Update(t.Context(), "exec-1", models.ExecutionUpdate{
		Status:      models.ExecutionStatusCompleted,
		CurrentStep: models.StepSaveHistory,
		StoryID:     &storyID,
	}, start.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(30), *updated.DurationSeconds)

	_, err = repo.Update(t.Context(), "exec-1", models.ExecutionUpdate{Status: models.ExecutionStatusFailed}, start.Add(time.Hour))
	assert.ErrorIs(t, err, models.ErrExecutionFinished)

	fetched, err := repo.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, fetched.Status)
	assert.Equal(t, int64(30), *fetched.DurationSeconds)

	_, err = repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))

	_, err = repo.GetByID(t.Context(), "../escape")
	assert.Error(t, err)
}

func TestExecutionRepository_ListOrdering(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	repo := fp.ExecutionRepository()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(t.Context(), models.NewExecution("old", nil, start)))
	require.NoError(t, repo.Create(t.Context(), models.NewExecution("new", nil, start.Add(time.Hour))))

	_, err := repo.Update(t.Context(), "old", models.ExecutionUpdate{Status: models.ExecutionStatusFailed}, start.Add(time.Minute))
	require.NoError(t, err)

	executions, err := repo.List(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "new", executions[0].ID)

	running, err := repo.ListByStatus(t.Context(), models.ExecutionStatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "new", running[0].ID)
}

func TestHistoryFile_AppendAndLoad(t *testing.T) {
	history := NewHistoryFile(filepath.Join(t.TempDir(), "data", "story-history.json"))

	loaded, err := history.Load(t.Context())
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, history.Append(t.Context(), models.StoryHistoryEntry{Episode: 1, Dish: "김치전"}))
	require.NoError(t, history.Append(t.Context(), models.StoryHistoryEntry{Episode: 2, Dish: "떡볶이"}))

	loaded, err = history.Load(t.Context())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "떡볶이", loaded[1].Dish)
}
