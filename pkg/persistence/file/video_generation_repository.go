package file

import (
	"context"
	"os"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

// VideoGenerationRepository handles video generation file operations.
type VideoGenerationRepository struct {
	records *collection[models.VideoGeneration]
}

func (r *VideoGenerationRepository) Create(_ context.Context, record *models.VideoGeneration) error {
	defer r.records.lock()()

	id, err := r.records.nextID(func(v *models.VideoGeneration) int64 { return v.ID })
	if err != nil {
		return persistence.NewRecordError("Create", "video generation", "", err)
	}

	stored := *record
	stored.ID = id

	if stored.Segments == nil {
		stored.Segments = []models.Segment{}
	}

	if err := r.records.write(intKey(id), &stored); err != nil {
		return persistence.NewRecordError("Create", "video generation", intKey(id), err)
	}

	record.ID = id

	return nil
}

func (r *VideoGenerationRepository) Update(_ context.Context, id int64, update models.VideoGenerationUpdate) error {
	defer r.records.lock()()

	record, err := r.records.read(intKey(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewRecordError("Update", "video generation", intKey(id), persistence.ErrVideoGenerationNotFound)
		}

		return persistence.NewRecordError("Update", "video generation", intKey(id), err)
	}

	record.Apply(update, time.Now().UTC())

	if err := r.records.write(intKey(id), record); err != nil {
		return persistence.NewRecordError("Update", "video generation", intKey(id), err)
	}

	return nil
}

func (r *VideoGenerationRepository) GetByID(_ context.Context, id int64) (*models.VideoGeneration, error) {
	defer r.records.lock()()

	record, err := r.records.read(intKey(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRecordError("GetByID", "video generation", intKey(id), persistence.ErrVideoGenerationNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "video generation", intKey(id), err)
	}

	return record, nil
}

func (r *VideoGenerationRepository) Count(_ context.Context) (int, error) {
	defer r.records.lock()()

	records, err := r.records.all()
	if err != nil {
		return 0, persistence.NewRecordError("Count", "video generation", "", err)
	}

	return len(records), nil
}
