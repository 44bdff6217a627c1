package file

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

// UploadRepository handles upload file operations.
type UploadRepository struct {
	records *collection[models.Upload]
}

func (r *UploadRepository) Create(_ context.Context, record *models.Upload) error {
	defer r.records.lock()()

	existing, err := r.records.all()
	if err != nil {
		return persistence.NewRecordError("Create", "upload", "", err)
	}

	for _, other := range existing {
		if other.VideoID == record.VideoID {
			return persistence.NewRecordError("Create", "upload", "", fmt.Errorf("%w: %s", persistence.ErrDuplicateVideoID, record.VideoID))
		}
	}

	id, err := r.records.nextID(func(u *models.Upload) int64 { return u.ID })
	if err != nil {
		return persistence.NewRecordError("Create", "upload", "", err)
	}

	stored := *record
	stored.ID = id

	if err := r.records.write(intKey(id), &stored); err != nil {
		return persistence.NewRecordError("Create", "upload", intKey(id), err)
	}

	record.ID = id

	return nil
}

func (r *UploadRepository) GetByID(_ context.Context, id int64) (*models.Upload, error) {
	defer r.records.lock()()

	record, err := r.records.read(intKey(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRecordError("GetByID", "upload", intKey(id), persistence.ErrUploadNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "upload", intKey(id), err)
	}

	return record, nil
}

func (r *UploadRepository) GetByVideoID(_ context.Context, videoID string) (*models.Upload, error) {
	defer r.records.lock()()

	records, err := r.records.all()
	if err != nil {
		return nil, persistence.NewRecordError("GetByVideoID", "upload", videoID, err)
	}

	for _, record := range records {
		if record.VideoID == videoID {
			return record, nil
		}
	}

	return nil, persistence.NewRecordError("GetByVideoID", "upload", videoID, persistence.ErrUploadNotFound)
}

func (r *UploadRepository) Count(_ context.Context) (int, error) {
	defer r.records.lock()()

	records, err := r.records.all()
	if err != nil {
		return 0, persistence.NewRecordError("Count", "upload", "", err)
	}

	return len(records), nil
}
