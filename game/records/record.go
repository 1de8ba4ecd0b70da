package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultLimit is the leaderboard size shown when none is requested
const DefaultLimit = 10

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidRecord  = errors.New("invalid record")
)

// Record is the outcome of one won game
type Record struct {
	PlayerName string    `json:"player_name"`
	Difficulty string    `json:"difficulty"`
	Seconds    int       `json:"seconds"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AddResult reports what Add did with a record
type AddResult struct {
	// Stored is true when the record became the player's best
	Stored bool `json:"stored"`
	// Previous is the best record before this one, if any
	Previous *Record `json:"previous,omitempty"`
}

// NewBest reports whether the record improved on an existing best
func (r AddResult) NewBest() bool {
	return r.Stored && r.Previous != nil
}

// Store consumes final game outcomes and answers leaderboard queries
type Store interface {
	Add(ctx context.Context, rec Record) (AddResult, error)
	Best(ctx context.Context, difficulty string, limit int) ([]Record, error)
	PlayerBest(ctx context.Context, player, difficulty string) (*Record, error)
	Close() error
}

// Validate checks a record and normalizes surrounding whitespace
func (r *Record) Validate() error {
	r.PlayerName = strings.TrimSpace(r.PlayerName)
	r.Difficulty = strings.TrimSpace(r.Difficulty)
	if r.PlayerName == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidRecord)
	}
	if r.Difficulty == "" {
		return fmt.Errorf("%w: difficulty is required", ErrInvalidRecord)
	}
	if r.Seconds < 0 {
		return fmt.Errorf("%w: seconds must not be negative, got %d", ErrInvalidRecord, r.Seconds)
	}
	return nil
}

// normalize folds a name or label for case-insensitive comparison
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func key(player, difficulty string) string {
	return normalize(player) + "\x00" + normalize(difficulty)
}

// prepare validates rec and stamps it with the current time when unset
func prepare(rec *Record, now func() time.Time) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now().UTC()
	}
	return nil
}

// merge applies the best-time rule to an in-memory list. It returns the
// updated list and the result; list is modified in place when possible.
func merge(list []Record, rec Record) ([]Record, AddResult) {
	k := key(rec.PlayerName, rec.Difficulty)
	for i := range list {
		if key(list[i].PlayerName, list[i].Difficulty) != k {
			continue
		}
		prev := list[i]
		if rec.Seconds >= prev.Seconds {
			return list, AddResult{Stored: false, Previous: &prev}
		}
		list[i] = rec
		return list, AddResult{Stored: true, Previous: &prev}
	}
	return append(list, rec), AddResult{Stored: true}
}

// best filters list by difficulty and orders it fastest first.
// limit <= 0 returns every match.
func best(list []Record, difficulty string, limit int) []Record {
	d := normalize(difficulty)
	out := make([]Record, 0, len(list))
	for _, r := range list {
		if normalize(r.Difficulty) == d {
			out = append(out, r)
		}
	}
	sortRecords(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortRecords(list []Record) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Seconds != list[j].Seconds {
			return list[i].Seconds < list[j].Seconds
		}
		if !list[i].RecordedAt.Equal(list[j].RecordedAt) {
			return list[i].RecordedAt.Before(list[j].RecordedAt)
		}
		return normalize(list[i].PlayerName) < normalize(list[j].PlayerName)
	})
}

func find(list []Record, player, difficulty string) (*Record, error) {
	k := key(player, difficulty)
	for _, r := range list {
		if key(r.PlayerName, r.Difficulty) == k {
			found := r
			return &found, nil
		}
	}
	return nil, ErrRecordNotFound
}
