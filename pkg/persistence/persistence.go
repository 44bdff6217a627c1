// Package persistence provides the storage abstraction for stories, renders, uploads and the execution ledger.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/episodic/pkg/models"
)

// Persistence aggregates the repositories of one store. Every repository call
// commits on its own and rolls back its pending writes on failure.
type Persistence interface {
	StoryRepository() StoryRepository
	VideoGenerationRepository() VideoGenerationRepository
	UploadRepository() UploadRepository
	ExecutionRepository() ExecutionRepository

	// Migrator returns the schema migrator, or nil when the store has no schema.
	Migrator() Migrator

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// StoryRepository stores generated stories, one per episode.
type StoryRepository interface {
	// Create inserts the record and sets its ID. Returns ErrDuplicateEpisode
	// when the episode already exists.
	Create(ctx context.Context, record *models.StoryRecord) error
	GetByID(ctx context.Context, id int64) (*models.StoryRecord, error)
	GetByEpisode(ctx context.Context, episode int) (*models.StoryRecord, error)

	// Recent returns the latest limit stories ordered by episode ascending.
	Recent(ctx context.Context, limit int) ([]*models.StoryRecord, error)
	Count(ctx context.Context) (int, error)
}

// VideoGenerationRepository tracks the progress of video stage runs.
type VideoGenerationRepository interface {
	Create(ctx context.Context, record *models.VideoGeneration) error
	Update(ctx context.Context, id int64, update models.VideoGenerationUpdate) error
	GetByID(ctx context.Context, id int64) (*models.VideoGeneration, error)
	Count(ctx context.Context) (int, error)
}

// UploadRepository stores published videos.
type UploadRepository interface {
	Create(ctx context.Context, record *models.Upload) error
	GetByID(ctx context.Context, id int64) (*models.Upload, error)
	GetByVideoID(ctx context.Context, videoID string) (*models.Upload, error)
	Count(ctx context.Context) (int, error)
}

// ExecutionRepository is the execution ledger store.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error

	// Update loads the entry, applies update with models.Execution.Apply and
	// stores the result in one transaction.
	Update(ctx context.Context, id string, update models.ExecutionUpdate, now time.Time) (*models.Execution, error)
	GetByID(ctx context.Context, id string) (*models.Execution, error)

	// List returns the latest executions, most recent first.
	List(ctx context.Context, limit int) ([]*models.Execution, error)
	ListByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error)
	Count(ctx context.Context) (int, error)
}

// HistoryStore keeps the story history as a document when no database is configured.
type HistoryStore interface {
	Load(ctx context.Context) ([]models.StoryHistoryEntry, error)
	Append(ctx context.Context, entry models.StoryHistoryEntry) error
}

// MigrationRecord is one applied schema version.
type MigrationRecord struct {
	Version   int       `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

// Migrator applies and reverts schema versions.
type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context, target int) error
	Current(ctx context.Context) (int, error)
	History(ctx context.Context) ([]MigrationRecord, error)
}
