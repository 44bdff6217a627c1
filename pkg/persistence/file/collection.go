package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var errInvalidKey = errors.New("record key contains invalid characters")

// collection stores records of one kind as JSON documents. Callers hold mu
// around read-modify-write sequences.
type collection[T any] struct {
	dir string
	mu  *sync.Mutex
}

func newCollection[T any](root, kind string, mu *sync.Mutex) *collection[T] {
	return &collection[T]{dir: filepath.Join(root, kind), mu: mu}
}

func (c *collection[T]) lock() func() {
	c.mu.Lock()

	return c.mu.Unlock
}

// validateKey validates that the key is safe for file operations.
func validateKey(key string) error {
	if key == "" {
		return errors.New("record key cannot be empty")
	}

	if strings.Contains(key, "..") || strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return errInvalidKey
	}

	return nil
}

func (c *collection[T]) write(key string, record *T) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := os.MkdirAll(c.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.dir, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}

	err = os.WriteFile(filepath.Join(c.dir, key+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}

	return nil
}

// read returns the record stored under key. A missing record is reported
// with an error wrapping os.ErrNotExist.
func (c *collection[T]) read(key string) (*T, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(c.dir, key+".json")) // #nosec G304 -- key is validated
	if err != nil {
		return nil, err
	}

	var record T

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}

	return &record, nil
}

func (c *collection[T]) all() ([]*T, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*T{}, nil
		}

		return nil, fmt.Errorf("failed to read directory %s: %w", c.dir, err)
	}

	records := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		record, err := c.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip invalid files
			continue
		}

		records = append(records, record)
	}

	return records, nil
}

// nextID returns one past the highest id in the collection.
func (c *collection[T]) nextID(idOf func(*T) int64) (int64, error) {
	records, err := c.all()
	if err != nil {
		return 0, err
	}

	var highest int64

	for _, record := range records {
		if id := idOf(record); id > highest {
			highest = id
		}
	}

	return highest + 1, nil
}

func intKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
