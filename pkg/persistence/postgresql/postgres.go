// Package postgresql provides PostgreSQL persistence for the episode pipeline.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	migrator      *sqlbase.MigrationManager
	storyRepo     *StoryRepository
	videoRepo     *VideoGenerationRepository
	uploadRepo    *UploadRepository
	executionRepo *ExecutionRepository
}

// Open connects to PostgreSQL without touching the schema.
func Open(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		migrator:      sqlbase.NewMigrationManager(logger, database, migrations()),
		storyRepo:     NewStoryRepository(database, logger),
		videoRepo:     NewVideoGenerationRepository(database, logger),
		uploadRepo:    NewUploadRepository(database, logger),
		executionRepo: NewExecutionRepository(database, logger),
	}, nil
}

// NewPersistence connects to PostgreSQL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	postgres, err := Open(ctx, logger, databaseURL)
	if err != nil {
		return nil, err
	}

	err = postgres.migrator.RunMigrations(ctx)
	if err != nil {
		_ = postgres.db.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Migrator() persistence.Migrator {
	return p.migrator
}

func (p *Persistence) StoryRepository() persistence.StoryRepository {
	return p.storyRepo
}

func (p *Persistence) VideoGenerationRepository() persistence.VideoGenerationRepository {
	return p.videoRepo
}

func (p *Persistence) UploadRepository() persistence.UploadRepository {
	return p.uploadRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// inTx runs fn in its own transaction, committing on success and rolling back otherwise.
func inTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(tx)
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
