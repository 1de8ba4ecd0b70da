package service

import (
	"time"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/records"
)

// Preset is a named difficulty: board dimensions plus the label used on
// the leaderboard
type Preset struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Mines       int    `json:"mines"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	Player         string            `json:"player"`
	Preset         string            `json:"preset"`
	Difficulty     string            `json:"difficulty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	FinishedAt     *time.Time        `json:"finished_at,omitempty"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Board          *engine.BoardView `json:"board"`
	Record         *RecordResult     `json:"record,omitempty"`
}

// MoveRequest targets one cell. ElapsedSeconds, when set, replaces the
// session timer for the outcome handed to the leaderboard.
type MoveRequest struct {
	Row            int  `json:"row"`
	Col            int  `json:"col"`
	ElapsedSeconds *int `json:"elapsed_seconds,omitempty"`
}

// ActionResult contains the result of a reveal, mark or chord
type ActionResult struct {
	Change         *engine.Change    `json:"change"`
	Board          *engine.BoardView `json:"board"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Events         []GameEvent       `json:"events,omitempty"`
	Record         *RecordResult     `json:"record,omitempty"`
}

// RecordResult reports how a win was handled by the leaderboard
type RecordResult struct {
	Player   string          `json:"player"`
	Label    string          `json:"difficulty"`
	Seconds  int             `json:"seconds"`
	Stored   bool            `json:"stored"`
	NewBest  bool            `json:"new_best"`
	Previous *records.Record `json:"previous,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "opened", "marked", "won", "lost", "reset", "record"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HistoryEntry records one command applied to a session
type HistoryEntry struct {
	Number    int           `json:"number"`
	Action    engine.Action `json:"action"`
	Row       int           `json:"row"`
	Col       int           `json:"col"`
	Changed   bool          `json:"changed"`
	Opened    int           `json:"opened"`
	Phase     engine.Phase  `json:"phase"`
	Timestamp time.Time     `json:"timestamp"`
}

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated history
type HistoryResponse struct {
	Entries     []HistoryEntry `json:"entries"`
	Total       int            `json:"total"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// ConfigInfo provides information about a difficulty preset
type ConfigInfo struct {
	Filename    string  `json:"filename,omitempty"`
	ConfigID    string  `json:"config_id"` // The identifier to use for session creation
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	Mines       int     `json:"mines"`
	Density     float64 `json:"density"`
	BuiltIn     bool    `json:"built_in"`
}
