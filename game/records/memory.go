package records

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Add stores rec when it beats the player's best on that difficulty
func (s *MemoryStore) Add(ctx context.Context, rec Record) (AddResult, error) {
	if err := prepare(&rec, s.now); err != nil {
		return AddResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var res AddResult
	s.records, res = merge(s.records, rec)
	return res, nil
}

// Best returns the fastest records for a difficulty, all when limit is 0
func (s *MemoryStore) Best(ctx context.Context, difficulty string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return best(s.records, difficulty, limit), nil
}

// PlayerBest returns the player's record on a difficulty or ErrRecordNotFound
func (s *MemoryStore) PlayerBest(ctx context.Context, player, difficulty string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.records, player, difficulty)
}

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }
