package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStore persists records as one JSON array on disk
type FileStore struct {
	path    string
	log     *zap.Logger
	now     func() time.Time
	mu      sync.RWMutex
	records []Record
}

// NewFileStore opens the JSON file at path. A missing file starts an empty
// leaderboard; a corrupt one is an error.
func NewFileStore(path string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fs := &FileStore{path: path, log: log, now: time.Now}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("records file not found, starting empty", zap.String("path", path))
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.records); err != nil {
			return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
		}
	}
	log.Info("records loaded", zap.String("path", path), zap.Int("count", len(fs.records)))
	return fs, nil
}

// Add stores rec when it beats the player's best and rewrites the file
func (fs *FileStore) Add(ctx context.Context, rec Record) (AddResult, error) {
	if err := prepare(&rec, fs.now); err != nil {
		return AddResult{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	updated := make([]Record, len(fs.records))
	copy(updated, fs.records)
	updated, res := merge(updated, rec)
	if !res.Stored {
		return res, nil
	}
	if err := fs.write(updated); err != nil {
		return AddResult{}, err
	}
	fs.records = updated
	return res, nil
}

// write replaces the file through a temp file and rename
func (fs *FileStore) write(list []Record) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if dir := filepath.Dir(fs.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create records directory: %w", err)
		}
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace records file: %w", err)
	}
	return nil
}

// Best returns the fastest records for a difficulty, all when limit is 0
func (fs *FileStore) Best(ctx context.Context, difficulty string, limit int) ([]Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return best(fs.records, difficulty, limit), nil
}

// PlayerBest returns the player's record on a difficulty or ErrRecordNotFound
func (fs *FileStore) PlayerBest(ctx context.Context, player, difficulty string) (*Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return find(fs.records, player, difficulty)
}

// Close is a no-op; every Add is already on disk
func (fs *FileStore) Close() error { return nil }
