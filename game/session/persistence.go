package session

import (
	"time"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Preset is stored in full so a session survives its preset file being
// edited or removed.
type PersistedSessionData struct {
	ID             string                 `json:"id"`
	Player         string                 `json:"player"`
	PresetName     string                 `json:"preset_name"`
	Preset         *service.Preset        `json:"preset,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	FinishedAt     *time.Time             `json:"finished_at,omitempty"`
	History        []service.HistoryEntry `json:"history,omitempty"`
	Record         *service.RecordResult  `json:"record,omitempty"`
	GameState      *engine.GameState      `json:"game_state"`
}
