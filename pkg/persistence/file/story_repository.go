package file

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

// StoryRepository handles story file operations.
type StoryRepository struct {
	records *collection[models.StoryRecord]
}

func (r *StoryRepository) Create(_ context.Context, record *models.StoryRecord) error {
	defer r.records.lock()()

	existing, err := r.records.all()
	if err != nil {
		return persistence.NewRecordError("Create", "story", "", err)
	}

	for _, other := range existing {
		if other.Episode == record.Episode {
			return persistence.NewRecordError("Create", "story", "", fmt.Errorf("%w: %d", persistence.ErrDuplicateEpisode, record.Episode))
		}
	}

	id, err := r.records.nextID(func(s *models.StoryRecord) int64 { return s.ID })
	if err != nil {
		return persistence.NewRecordError("Create", "story", "", err)
	}

	stored := *record
	stored.ID = id

	if err := r.records.write(intKey(id), &stored); err != nil {
		return persistence.NewRecordError("Create", "story", intKey(id), err)
	}

	record.ID = id

	return nil
}

func (r *StoryRepository) GetByID(_ context.Context, id int64) (*models.StoryRecord, error) {
	defer r.records.lock()()

	record, err := r.records.read(intKey(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRecordError("GetByID", "story", intKey(id), persistence.ErrStoryNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "story", intKey(id), err)
	}

	return record, nil
}

func (r *StoryRepository) GetByEpisode(_ context.Context, episode int) (*models.StoryRecord, error) {
	defer r.records.lock()()

	records, err := r.records.all()
	if err != nil {
		return nil, persistence.NewRecordError("GetByEpisode", "story", "", err)
	}

	for _, record := range records {
		if record.Episode == episode {
			return record, nil
		}
	}

	return nil, persistence.NewRecordError("GetByEpisode", "story", fmt.Sprintf("episode %d", episode), persistence.ErrStoryNotFound)
}

func (r *StoryRepository) Recent(_ context.Context, limit int) ([]*models.StoryRecord, error) {
	defer r.records.lock()()

	records, err := r.records.all()
	if err != nil {
		return nil, persistence.NewRecordError("Recent", "story", "", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Episode < records[j].Episode
	})

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	return records, nil
}

func (r *StoryRepository) Count(_ context.Context) (int, error) {
	defer r.records.lock()()

	records, err := r.records.all()
	if err != nil {
		return 0, persistence.NewRecordError("Count", "story", "", err)
	}

	return len(records), nil
}
