package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"workflow_executions", "youtube_uploads", "video_generations", "story_history", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("episodic_test"),
			postgres.WithUsername("episodic"),
			postgres.WithPassword("episodic"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	current, err := p.Migrator().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, current)

	history, err := p.Migrator().History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)

	require.NoError(t, p.Migrator().Down(ctx, 1))

	current, err = p.Migrator().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, current)

	require.NoError(t, p.Migrator().Up(ctx))

	current, err = p.Migrator().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, current)

	err = p.Migrator().Down(ctx, 7)
	assert.ErrorIs(t, err, persistence.ErrInvalidMigrationTarget)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestStoryRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.StoryRepository()
	now := time.Now().UTC().Truncate(time.Second)

	for episode := 1; episode <= 3; episode++ {
		record := models.NewStoryRecord(&models.Story{
			Title:        "넝심이의 요리",
			Dish:         "김치전",
			CookingSteps: []string{"준비", "요리"},
			VideoPrompts: []string{"prompt one", "prompt two"},
			Tags:         []string{"요리"},
		}, episode, now)
		require.NoError(t, repo.Create(ctx, record))
		assert.NotZero(t, record.ID)
	}

	err := repo.Create(ctx, models.NewStoryRecord(&models.Story{Title: "t", Dish: "d"}, 2, now))
	assert.ErrorIs(t, err, persistence.ErrDuplicateEpisode)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].Episode)
	assert.Equal(t, 3, recent[1].Episode)
	assert.Equal(t, []string{"prompt one", "prompt two"}, recent[1].VideoPrompts)

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = repo.GetByEpisode(ctx, 42)
	assert.ErrorIs(t, err, persistence.ErrStoryNotFound)
}

func TestVideoGenerationAndUploadRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	video := &models.VideoGeneration{StoryID: 1, Status: models.VideoStatusProcessing}
	require.NoError(t, p.VideoGenerationRepository().Create(ctx, video))

	segments := []models.Segment{
		{Index: 0, Prompt: "a", Path: "/out/a.mp4"},
		{Index: 1, Prompt: "b", Path: "/out/b.mp4", Placeholder: true},
	}
	require.NoError(t, p.VideoGenerationRepository().Update(ctx, video.ID, models.VideoGenerationUpdate{
		Status:    models.VideoStatusCompleted,
		VideoPath: "/out/video.mp4",
		Segments:  segments,
	}))

	fetched, err := p.VideoGenerationRepository().GetByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoStatusCompleted, fetched.Status)
	assert.Equal(t, segments, fetched.Segments)

	err = p.VideoGenerationRepository().Update(ctx, 999, models.VideoGenerationUpdate{Status: models.VideoStatusFailed})
	assert.ErrorIs(t, err, persistence.ErrVideoGenerationNotFound)

	upload := &models.Upload{
		StoryID:           1,
		VideoGenerationID: &video.ID,
		VideoID:           "yt-123",
		VideoURL:          "https://www.youtube.com/watch?v=yt-123",
		Title:             "title",
		Status:            models.UploadStatusCompleted,
		PrivacyStatus:     models.VisibilityPrivate,
	}
	require.NoError(t, p.UploadRepository().Create(ctx, upload))

	err = p.UploadRepository().Create(ctx, &models.Upload{StoryID: 1, VideoID: "yt-123", Status: models.UploadStatusCompleted, PrivacyStatus: models.VisibilityPublic})
	assert.ErrorIs(t, err, persistence.ErrDuplicateVideoID)

	stored, err := p.UploadRepository().GetByVideoID(ctx, "yt-123")
	require.NoError(t, err)
	require.NotNil(t, stored.VideoGenerationID)
	assert.Equal(t, video.ID, *stored.VideoGenerationID)
}

func TestExecutionRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ExecutionRepository()
	start := time.Now().UTC().Truncate(time.Second)

	id := uuid.New().String()
	require.NoError(t, repo.Create(ctx, models.NewExecution(id, nil, start)))

	running, err := repo.ListByStatus(ctx, models.ExecutionStatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)

	storyID := int64(3)
	updated, err := repo.Update(ctx, id, models.ExecutionUpdate{
		Status:       models.ExecutionStatusFailed,
		CurrentStep:  models.StepError,
		StoryID:      &storyID,
		ErrorMessage: "upload failed",
	}, start.Add(12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(12), *updated.DurationSeconds)

	_, err = repo.Update(ctx, id, models.ExecutionUpdate{Status: models.ExecutionStatusCompleted}, start.Add(time.Minute))
	assert.ErrorIs(t, err, models.ErrExecutionFinished)

	fetched, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, fetched.Status)
	assert.Equal(t, "upload failed", fetched.ErrorMessage)
	assert.Equal(t, int64(3), *fetched.StoryID)
	assert.Nil(t, fetched.YouTubeUploadID)
	assert.Equal(t, int64(12), *fetched.DurationSeconds)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.True(t, persistence.IsExecutionNotFound(err))

	listed, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
