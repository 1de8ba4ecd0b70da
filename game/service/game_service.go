package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/records"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, presetName, player string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Reveal(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error)
	ToggleMark(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error)
	Chord(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.BoardView, error)

	// Game State
	GetBoard(ctx context.Context, sessionID string) (*engine.BoardView, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Presets
	ListPresets(ctx context.Context) ([]*ConfigInfo, error)
	GetPreset(ctx context.Context, name string) (*Preset, error)
	SavePreset(ctx context.Context, name string, preset *Preset) error

	// Leaderboard
	Leaderboard(ctx context.Context, difficulty string, limit int) ([]records.Record, error)
	PlayerBest(ctx context.Context, player, difficulty string) (*records.Record, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(player string, preset *Preset) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(session *Session) error
}

// ConfigManager handles difficulty preset loading
type ConfigManager interface {
	LoadConfig(name string) (*Preset, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *Preset
	SaveConfig(name string, preset *Preset) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Player         string
	Preset         *Preset
	Engine         *engine.GameEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	History        []HistoryEntry
	Record         *RecordResult

	mu sync.Mutex
}

// Lock serializes commands on the session's engine
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *Session) Unlock() { s.mu.Unlock() }

// ElapsedSeconds returns whole seconds since the first reveal, frozen once
// the game is over. Zero until the game starts.
func (s *Session) ElapsedSeconds(now time.Time) int {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	if s.FinishedAt != nil {
		end = *s.FinishedAt
	}
	d := end.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
