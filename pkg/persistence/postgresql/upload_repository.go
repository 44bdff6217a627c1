package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

const uploadColumns = `id, story_id, video_generation_id, video_id, video_url, title, status,
	privacy_status, error_message, created_at, updated_at`

// UploadRepository handles youtube_uploads database operations.
type UploadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUploadRepository creates a new upload repository.
func NewUploadRepository(db *sql.DB, logger *slog.Logger) *UploadRepository {
	return &UploadRepository{db: db, logger: logger}
}

func (r *UploadRepository) Create(ctx context.Context, record *models.Upload) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}

	query := `
		INSERT INTO youtube_uploads (
			story_id, video_generation_id, video_id, video_url, title, status,
			privacy_status, error_message, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := inTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query,
			record.StoryID,
			record.VideoGenerationID,
			record.VideoID,
			record.VideoURL,
			record.Title,
			record.Status,
			record.PrivacyStatus,
			nullString(record.ErrorMessage),
			record.CreatedAt.UTC(),
			record.UpdatedAt.UTC(),
		).Scan(&record.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %s", persistence.ErrDuplicateVideoID, record.VideoID)
		}

		return persistence.NewRecordError("Create", "upload", "", err)
	}

	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id int64) (*models.Upload, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+uploadColumns+" FROM youtube_uploads WHERE id = $1", id)

	record, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrUploadNotFound
		}

		return nil, persistence.NewRecordError("GetByID", "upload", strconv.FormatInt(id, 10), err)
	}

	return record, nil
}

func (r *UploadRepository) GetByVideoID(ctx context.Context, videoID string) (*models.Upload, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+uploadColumns+" FROM youtube_uploads WHERE video_id = $1", videoID)

	record, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrUploadNotFound
		}

		return nil, persistence.NewRecordError("GetByVideoID", "upload", videoID, err)
	}

	return record, nil
}

func (r *UploadRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM youtube_uploads").Scan(&count)
	if err != nil {
		return 0, persistence.NewRecordError("Count", "upload", "", err)
	}

	return count, nil
}

func scanUpload(row scanner) (*models.Upload, error) {
	var (
		record            models.Upload
		videoGenerationID sql.NullInt64
		errorMessage      sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&record.StoryID,
		&videoGenerationID,
		&record.VideoID,
		&record.VideoURL,
		&record.Title,
		&record.Status,
		&record.PrivacyStatus,
		&errorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if videoGenerationID.Valid {
		record.VideoGenerationID = &videoGenerationID.Int64
	}

	record.ErrorMessage = errorMessage.String

	return &record, nil
}
