package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

// ExecutionRepository stores ledger entries as one JSON document each.
type ExecutionRepository struct {
	records *collection[models.Execution]
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	defer r.records.lock()()

	if _, err := r.records.read(execution.ID); err == nil {
		return persistence.NewRecordError("Create", "execution", execution.ID, fmt.Errorf("execution %s already exists", execution.ID))
	}

	if err := r.records.write(execution.ID, execution); err != nil {
		return persistence.NewRecordError("Create", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) Update(_ context.Context, id string, update models.ExecutionUpdate, now time.Time) (*models.Execution, error) {
	defer r.records.lock()()

	execution, err := r.records.read(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRecordError("Update", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewRecordError("Update", "execution", id, err)
	}

	if err := execution.Apply(update, now); err != nil {
		return execution, persistence.NewRecordError("Update", "execution", id, err)
	}

	if err := r.records.write(id, execution); err != nil {
		return nil, persistence.NewRecordError("Update", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	defer r.records.lock()()

	execution, err := r.records.read(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRecordError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) List(_ context.Context, limit int) ([]*models.Execution, error) {
	defer r.records.lock()()

	executions, err := r.records.all()
	if err != nil {
		return nil, persistence.NewRecordError("List", "execution", "", err)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func (r *ExecutionRepository) ListByStatus(_ context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	defer r.records.lock()()

	executions, err := r.records.all()
	if err != nil {
		return nil, persistence.NewRecordError("ListByStatus", "execution", "", err)
	}

	matching := []*models.Execution{}

	for _, execution := range executions {
		if execution.Status == status {
			matching = append(matching, execution)
		}
	}

	sort.Slice(matching, func(i, j int) bool {
		return matching[i].StartedAt.After(matching[j].StartedAt)
	})

	return matching, nil
}

func (r *ExecutionRepository) Count(_ context.Context) (int, error) {
	defer r.records.lock()()

	executions, err := r.records.all()
	if err != nil {
		return 0, persistence.NewRecordError("Count", "execution", "", err)
	}

	return len(executions), nil
}
