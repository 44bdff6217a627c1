package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

const storyColumns = `id, episode, date, title, dish, summary, story, cooking_steps,
	video_prompts, tags, description, created_at, updated_at`

// StoryRepository handles story_history database operations.
type StoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStoryRepository creates a new story repository.
func NewStoryRepository(db *sql.DB, logger *slog.Logger) *StoryRepository {
	return &StoryRepository{db: db, logger: logger}
}

// Create inserts a story and sets its ID.
func (r *StoryRepository) Create(ctx context.Context, record *models.StoryRecord) error {
	cookingSteps, err := json.Marshal(nonNil(record.CookingSteps))
	if err != nil {
		return fmt.Errorf("failed to marshal cooking steps: %w", err)
	}

	videoPrompts, err := json.Marshal(nonNil(record.VideoPrompts))
	if err != nil {
		return fmt.Errorf("failed to marshal video prompts: %w", err)
	}

	tags, err := json.Marshal(nonNil(record.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO story_history (
			episode, date, title, dish, summary, story, cooking_steps,
			video_prompts, tags, description, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err = inTx(ctx, r.db, r.logger, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query,
			record.Episode,
			record.Date.UTC(),
			record.Title,
			record.Dish,
			record.Summary,
			record.Story,
			cookingSteps,
			videoPrompts,
			tags,
			record.Description,
			record.CreatedAt.UTC(),
			record.UpdatedAt.UTC(),
		).Scan(&record.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %d", persistence.ErrDuplicateEpisode, record.Episode)
		}

		return persistence.NewRecordError("Create", "story", "", err)
	}

	return nil
}

func (r *StoryRepository) GetByID(ctx context.Context, id int64) (*models.StoryRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+storyColumns+" FROM story_history WHERE id = $1", id)

	record, err := scanStory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrStoryNotFound
		}

		return nil, persistence.NewRecordError("GetByID", "story", strconv.FormatInt(id, 10), err)
	}

	return record, nil
}

func (r *StoryRepository) GetByEpisode(ctx context.Context, episode int) (*models.StoryRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+storyColumns+" FROM story_history WHERE episode = $1", episode)

	record, err := scanStory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrStoryNotFound
		}

		return nil, persistence.NewRecordError("GetByEpisode", "story", fmt.Sprintf("episode %d", episode), err)
	}

	return record, nil
}

// Recent returns the latest limit stories, oldest episode first.
func (r *StoryRepository) Recent(ctx context.Context, limit int) ([]*models.StoryRecord, error) {
	query := `
		SELECT * FROM (
			SELECT ` + storyColumns + `
			FROM story_history
			ORDER BY episode DESC
			LIMIT $1
		) recent
		ORDER BY episode ASC
	`

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.db.QueryContext(ctx, query, limitArg)
	if err != nil {
		return nil, persistence.NewRecordError("Recent", "story", "", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	records := []*models.StoryRecord{}

	for rows.Next() {
		record, err := scanStory(rows)
		if err != nil {
			return nil, persistence.NewRecordError("Recent", "story", "", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("Recent", "story", "", err)
	}

	return records, nil
}

func (r *StoryRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM story_history").Scan(&count)
	if err != nil {
		return 0, persistence.NewRecordError("Count", "story", "", err)
	}

	return count, nil
}

func scanStory(row scanner) (*models.StoryRecord, error) {
	var (
		record                           models.StoryRecord
		cookingSteps, videoPrompts, tags []byte
	)

	err := row.Scan(
		&record.ID,
		&record.Episode,
		&record.Date,
		&record.Title,
		&record.Dish,
		&record.Summary,
		&record.Story,
		&cookingSteps,
		&videoPrompts,
		&tags,
		&record.Description,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for target, data := range map[*[]string][]byte{
		&record.CookingSteps: cookingSteps,
		&record.VideoPrompts: videoPrompts,
		&record.Tags:         tags,
	} {
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal story lists: %w", err)
		}
	}

	return &record, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
