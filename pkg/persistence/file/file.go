// Package file provides file-based persistence for the episode pipeline.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Each record is one JSON document under a directory per kind.
type Persistence struct {
	root          string
	mu            sync.Mutex
	storyRepo     *StoryRepository
	videoRepo     *VideoGenerationRepository
	uploadRepo    *UploadRepository
	executionRepo *ExecutionRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot}
	fp.storyRepo = &StoryRepository{records: newCollection[models.StoryRecord](cleanRoot, "stories", &fp.mu)}
	fp.videoRepo = &VideoGenerationRepository{records: newCollection[models.VideoGeneration](cleanRoot, "video_generations", &fp.mu)}
	fp.uploadRepo = &UploadRepository{records: newCollection[models.Upload](cleanRoot, "youtube_uploads", &fp.mu)}
	fp.executionRepo = &ExecutionRepository{records: newCollection[models.Execution](cleanRoot, "workflow_executions", &fp.mu)}

	return fp
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Migrator returns nil, file persistence has no schema.
func (fp *Persistence) Migrator() persistence.Migrator {
	return nil
}

func (fp *Persistence) StoryRepository() persistence.StoryRepository {
	return fp.storyRepo
}

func (fp *Persistence) VideoGenerationRepository() persistence.VideoGenerationRepository {
	return fp.videoRepo
}

func (fp *Persistence) UploadRepository() persistence.UploadRepository {
	return fp.uploadRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}
