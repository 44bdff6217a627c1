// Package sqlbase provides the base functionality for SQL database persistence.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/episodic/pkg/persistence"
)

// Migration is one schema version with its forward and reverse statements.
type Migration struct {
	Up   string
	Down string
}

// MigrationManager handles database schema migrations.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations map[int]Migration
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations map[int]Migration) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger,
		migrations: migrations,
	}
}

// Latest returns the highest known schema version.
func (m *MigrationManager) Latest() int {
	versions := m.versions()
	if len(versions) == 0 {
		return 0
	}

	return versions[len(versions)-1]
}

// RunMigrations handles database schema creation and updates.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	return m.Up(ctx)
}

// Up applies every pending migration in version order.
func (m *MigrationManager) Up(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations")

	currentVersion, err := m.Current(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Current schema version", "version", currentVersion)

	for _, version := range m.versions() {
		if version <= currentVersion {
			continue
		}

		err := m.apply(ctx, version, m.migrations[version].Up, "INSERT INTO schema_migrations (version) VALUES ($1)")
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	m.logger.InfoContext(ctx, "Database migrations completed", "version", m.Latest())

	return nil
}

// Down reverts applied migrations, newest first, until target is the current version.
func (m *MigrationManager) Down(ctx context.Context, target int) error {
	if target < 0 || target > m.Latest() {
		return fmt.Errorf("%w: %d", persistence.ErrInvalidMigrationTarget, target)
	}

	currentVersion, err := m.Current(ctx)
	if err != nil {
		return err
	}

	versions := m.versions()
	slices.Reverse(versions)

	for _, version := range versions {
		if version > currentVersion || version <= target {
			continue
		}

		err := m.apply(ctx, version, m.migrations[version].Down, "DELETE FROM schema_migrations WHERE version = $1")
		if err != nil {
			return fmt.Errorf("failed to revert migrations: %w", err)
		}
	}

	m.logger.InfoContext(ctx, "Database downgrade completed", "version", target)

	return nil
}

// Current returns the current schema version.
func (m *MigrationManager) Current(ctx context.Context) (int, error) {
	err := m.createMigrationsTable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var version int

	err = m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return version, nil
}

// History returns the applied versions in order.
func (m *MigrationManager) History(ctx context.Context) ([]persistence.MigrationRecord, error) {
	err := m.createMigrationsTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema migrations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			m.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := []persistence.MigrationRecord{}

	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)

		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema migration: %w", err)
		}

		records = append(records, persistence.MigrationRecord{Version: version, AppliedAt: appliedAt})
	}

	return records, rows.Err()
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	createMigrationsSQL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`

	_, err := m.db.ExecContext(ctx, createMigrationsSQL)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

func (m *MigrationManager) versions() []int {
	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		versions = append(versions, version)
	}

	slices.Sort(versions)

	return versions
}

// apply runs statement and the bookkeeping query for version in one transaction.
func (m *MigrationManager) apply(ctx context.Context, version int, statement, bookkeeping string) error {
	m.logger.InfoContext(ctx, "Applying migration", "version", version)

	transaction, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
	}

	_, err = transaction.ExecContext(ctx, statement)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to execute migration %d: %w", version, err)
	}

	_, err = transaction.ExecContext(ctx, bookkeeping, version)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	m.logger.InfoContext(ctx, "Migration applied successfully", "version", version)

	return nil
}
