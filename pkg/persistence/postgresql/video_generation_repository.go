package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

// VideoGenerationRepository handles video_generations database operations.
type VideoGenerationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewVideoGenerationRepository creates a new video generation repository.
func NewVideoGenerationRepository(db *sql.DB, logger *slog.Logger) *VideoGenerationRepository {
	return &VideoGenerationRepository{db: db, logger: logger}
}

func (r *VideoGenerationRepository) Create(ctx context.Context, record *models.VideoGeneration) error {
	segments := record.Segments
	if segments == nil {
		segments = []models.Segment{}
	}

	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}

	query := `
		INSERT INTO video_generations (
			story_id, video_path, video_url, status, segments, error_message, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = inTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query,
			record.StoryID,
			nullString(record.VideoPath),
			nullString(record.VideoURL),
			record.Status,
			segmentsJSON,
			nullString(record.ErrorMessage),
			record.CreatedAt.UTC(),
			record.UpdatedAt.UTC(),
		).Scan(&record.ID)
	})
	if err != nil {
		return persistence.NewRecordError("Create", "video generation", "", err)
	}

	return nil
}

// Update applies the non-empty fields of update to the record.
func (r *VideoGenerationRepository) Update(ctx context.Context, id int64, update models.VideoGenerationUpdate) error {
	key := strconv.FormatInt(id, 10)

	err := inTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, story_id, video_path, video_url, status, segments, error_message, created_at, updated_at
			FROM video_generations WHERE id = $1 FOR UPDATE`, id)

		record, err := scanVideoGeneration(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrVideoGenerationNotFound
			}

			return err
		}

		record.Apply(update, time.Now().UTC())

		segmentsJSON, err := json.Marshal(record.Segments)
		if err != nil {
			return fmt.Errorf("failed to marshal segments: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE video_generations
			SET video_path = $2, video_url = $3, status = $4, segments = $5, error_message = $6, updated_at = $7
			WHERE id = $1`,
			id,
			nullString(record.VideoPath),
			nullString(record.VideoURL),
			record.Status,
			segmentsJSON,
			nullString(record.ErrorMessage),
			record.UpdatedAt,
		)

		return err
	})
	if err != nil {
		return persistence.NewRecordError("Update", "video generation", key, err)
	}

	return nil
}

func (r *VideoGenerationRepository) GetByID(ctx context.Context, id int64) (*models.VideoGeneration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, story_id, video_path, video_url, status, segments, error_message, created_at, updated_at
		FROM video_generations WHERE id = $1`, id)

	record, err := scanVideoGeneration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrVideoGenerationNotFound
		}

		return nil, persistence.NewRecordError("GetByID", "video generation", strconv.FormatInt(id, 10), err)
	}

	return record, nil
}

func (r *VideoGenerationRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM video_generations").Scan(&count)
	if err != nil {
		return 0, persistence.NewRecordError("Count", "video generation", "", err)
	}

	return count, nil
}

func scanVideoGeneration(row scanner) (*models.VideoGeneration, error) {
	var (
		record                            models.VideoGeneration
		videoPath, videoURL, errorMessage sql.NullString
		segments                          []byte
	)

	err := row.Scan(
		&record.ID,
		&record.StoryID,
		&videoPath,
		&videoURL,
		&record.Status,
		&segments,
		&errorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.VideoPath = videoPath.String
	record.VideoURL = videoURL.String
	record.ErrorMessage = errorMessage.String
	record.Segments = []models.Segment{}

	if segments != nil {
		if err := json.Unmarshal(segments, &record.Segments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal segments: %w", err)
		}
	}

	return &record, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
