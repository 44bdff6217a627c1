package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

const executionColumns = `id, episode_number, status, current_step, story_id, video_generation_id,
	youtube_upload_id, error_message, started_at, completed_at, duration_seconds`

// ExecutionRepository handles workflow_executions database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution ledger repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Create inserts a new ledger entry.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	query := `
		INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	err := inTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, executionArgs(execution)...)

		return err
	})
	if err != nil {
		return persistence.NewRecordError("Create", "execution", execution.ID, err)
	}

	return nil
}

// Update locks the entry, applies update and writes it back in one transaction.
func (r *ExecutionRepository) Update(ctx context.Context, id string, update models.ExecutionUpdate, now time.Time) (*models.Execution, error) {
	var execution *models.Execution

	err := inTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, "SELECT "+executionColumns+" FROM workflow_executions WHERE id = $1 FOR UPDATE", id)

		var err error

		execution, err = scanExecution(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrExecutionNotFound
			}

			return err
		}

		if err := execution.Apply(update, now); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE workflow_executions
			SET episode_number = $2, status = $3, current_step = $4, story_id = $5,
				video_generation_id = $6, youtube_upload_id = $7, error_message = $8,
				started_at = $9, completed_at = $10, duration_seconds = $11
			WHERE id = $1`,
			executionArgs(execution)...,
		)

		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrExecutionFinished) {
			return execution, persistence.NewRecordError("Update", "execution", id, err)
		}

		return nil, persistence.NewRecordError("Update", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+executionColumns+" FROM workflow_executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewRecordError("GetByID", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) List(ctx context.Context, limit int) ([]*models.Execution, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	return r.query(ctx, "List",
		"SELECT "+executionColumns+" FROM workflow_executions ORDER BY started_at DESC LIMIT $1", limitArg)
}

func (r *ExecutionRepository) ListByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	return r.query(ctx, "ListByStatus",
		"SELECT "+executionColumns+" FROM workflow_executions WHERE status = $1 ORDER BY started_at DESC", status)
}

func (r *ExecutionRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_executions").Scan(&count)
	if err != nil {
		return 0, persistence.NewRecordError("Count", "execution", "", err)
	}

	return count, nil
}

func (r *ExecutionRepository) query(ctx context.Context, op, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRecordError(op, "execution", "", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := []*models.Execution{}

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewRecordError(op, "execution", "", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError(op, "execution", "", err)
	}

	return executions, nil
}

func executionArgs(execution *models.Execution) []any {
	var completedAt *time.Time
	if execution.CompletedAt != nil {
		utc := execution.CompletedAt.UTC()
		completedAt = &utc
	}

	return []any{
		execution.ID,
		execution.EpisodeNumber,
		execution.Status,
		nullString(string(execution.CurrentStep)),
		execution.StoryID,
		execution.VideoGenerationID,
		execution.YouTubeUploadID,
		nullString(execution.ErrorMessage),
		execution.StartedAt.UTC(),
		completedAt,
		execution.DurationSeconds,
	}
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution                                 models.Execution
		episode                                   sql.NullInt64
		currentStep, errorMessage                 sql.NullString
		storyID, videoGenerationID, uploadID, dur sql.NullInt64
		completedAt                               sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&episode,
		&execution.Status,
		&currentStep,
		&storyID,
		&videoGenerationID,
		&uploadID,
		&errorMessage,
		&execution.StartedAt,
		&completedAt,
		&dur,
	)
	if err != nil {
		return nil, err
	}

	if episode.Valid {
		value := int(episode.Int64)
		execution.EpisodeNumber = &value
	}

	execution.CurrentStep = models.StepName(currentStep.String)
	execution.ErrorMessage = errorMessage.String
	execution.StoryID = int64OrNil(storyID)
	execution.VideoGenerationID = int64OrNil(videoGenerationID)
	execution.YouTubeUploadID = int64OrNil(uploadID)
	execution.DurationSeconds = int64OrNil(dur)

	if completedAt.Valid {
		value := completedAt.Time.UTC()
		execution.CompletedAt = &value
	}

	execution.StartedAt = execution.StartedAt.UTC()

	return &execution, nil
}

func int64OrNil(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}

	v := value.Int64

	return &v
}
