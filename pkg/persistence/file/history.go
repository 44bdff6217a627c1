package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dukex/episodic/pkg/models"
)

// HistoryFile keeps the story history as a single JSON array document.
type HistoryFile struct {
	path string
	mu   sync.Mutex
}

// NewHistoryFile creates a history store backed by path.
func NewHistoryFile(path string) *HistoryFile {
	return &HistoryFile{path: path}
}

// Path returns the location of the history document.
func (h *HistoryFile) Path() string {
	return h.path
}

// Load returns the stored history. A missing file is an empty history.
func (h *HistoryFile) Load(_ context.Context) ([]models.StoryHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.load()
}

// Append adds entry to the end of the history.
func (h *HistoryFile) Append(_ context.Context, entry models.StoryHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	history, err := h.load()
	if err != nil {
		return err
	}

	history = append(history, entry)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal story history: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(h.path), 0750)
	if err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	err = os.WriteFile(h.path, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write story history: %w", err)
	}

	return nil
}

func (h *HistoryFile) load() ([]models.StoryHistoryEntry, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.StoryHistoryEntry{}, nil
		}

		return nil, fmt.Errorf("failed to read story history: %w", err)
	}

	history := []models.StoryHistoryEntry{}

	err = json.Unmarshal(data, &history)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal story history: %w", err)
	}

	return history, nil
}
