package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/records"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPresetNotFound  = errors.New("preset not found")
)

// DefaultPlayer is used when a session is created without a player name
const DefaultPlayer = "Player"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions      SessionManager
	configs       ConfigManager
	records       records.Store
	log           *zap.Logger
	now           func() time.Time
	defaultPlayer string
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the service logger
func WithLogger(log *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces the wall clock, used by tests to control the timer
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultPlayer sets the name used for anonymous sessions
func WithDefaultPlayer(name string) Option {
	return func(s *gameServiceImpl) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultPlayer = name
		}
	}
}

// NewGameService creates a new game service instance. A nil store keeps
// wins off the leaderboard.
func NewGameService(sessions SessionManager, configs ConfigManager, store records.Store, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:      sessions,
		configs:       configs,
		records:       store,
		log:           zap.NewNop(),
		now:           time.Now,
		defaultPlayer: DefaultPlayer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("service")
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, presetName, player string) (*SessionInfo, error) {
	preset, err := s.resolvePreset(presetName)
	if err != nil {
		return nil, err
	}

	player = strings.TrimSpace(player)
	if player == "" {
		player = s.defaultPlayer
	}

	sess, err := s.sessions.Create(player, preset)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info("session created",
		zap.String("session", sess.ID),
		zap.String("player", player),
		zap.String("preset", preset.Name))

	sess.Lock()
	defer sess.Unlock()
	return s.sessionInfo(sess), nil
}

func (s *gameServiceImpl) resolvePreset(name string) (*Preset, error) {
	if strings.TrimSpace(name) == "" {
		if preset := s.configs.GetDefault(); preset != nil {
			return preset, nil
		}
		return nil, fmt.Errorf("%w: no default preset", ErrPresetNotFound)
	}

	preset, err := s.configs.LoadConfig(name)
	if err == nil {
		return preset, nil
	}

	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return nil, fmt.Errorf("%w: '%s': %v", ErrPresetNotFound, name, err)
	}
	ids := make([]string, 0, len(available))
	for _, cfg := range available {
		ids = append(ids, cfg.ConfigID)
	}
	return nil, fmt.Errorf("%w: '%s'. Available presets: %s", ErrPresetNotFound, name, strings.Join(ids, ", "))
}

// session fetches a session and bumps its access time
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	_ = s.sessions.UpdateLastAccessed(id)
	return sess, nil
}

// sessionInfo must be called with the session locked
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		Player:         sess.Player,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		StartedAt:      sess.StartedAt,
		FinishedAt:     sess.FinishedAt,
		ElapsedSeconds: sess.ElapsedSeconds(s.now()),
		Board:          sess.Engine.View(),
		Record:         sess.Record,
	}
	if sess.Preset != nil {
		info.Preset = sess.Preset.Name
		info.Difficulty = sess.Preset.Label
	}
	return info
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.sessionInfo(sess))
		sess.Unlock()
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	s.log.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// Reveal opens a cell
func (s *gameServiceImpl) Reveal(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error) {
	return s.apply(ctx, sessionID, req, engine.ActionReveal)
}

// ToggleMark cycles the mark of a closed cell
func (s *gameServiceImpl) ToggleMark(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error) {
	return s.apply(ctx, sessionID, req, engine.ActionMark)
}

// Chord opens the unflagged neighbors of a satisfied number
func (s *gameServiceImpl) Chord(ctx context.Context, sessionID string, req MoveRequest) (*ActionResult, error) {
	return s.apply(ctx, sessionID, req, engine.ActionChord)
}

func (s *gameServiceImpl) apply(ctx context.Context, sessionID string, req MoveRequest, action engine.Action) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	var change *engine.Change
	switch action {
	case engine.ActionReveal:
		change, err = sess.Engine.Reveal(req.Row, req.Col)
	case engine.ActionMark:
		change, err = sess.Engine.ToggleMark(req.Row, req.Col)
	case engine.ActionChord:
		change, err = sess.Engine.Chord(req.Row, req.Col)
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sess.StartedAt == nil && change.PhaseBefore == engine.Pending && change.PhaseAfter != engine.Pending {
		started := now
		sess.StartedAt = &started
	}
	if change.Finished() {
		finished := now
		sess.FinishedAt = &finished
	}
	elapsed := sess.ElapsedSeconds(now)

	result := &ActionResult{
		Change:         change,
		ElapsedSeconds: elapsed,
	}

	if change.Finished() && change.PhaseAfter == engine.Won {
		seconds := elapsed
		if req.ElapsedSeconds != nil && *req.ElapsedSeconds >= 0 {
			seconds = *req.ElapsedSeconds
		}
		sess.Record = s.submitRecord(ctx, sess, seconds)
		result.Record = sess.Record
	}

	sess.History = append(sess.History, HistoryEntry{
		Number:    len(sess.History) + 1,
		Action:    action,
		Row:       req.Row,
		Col:       req.Col,
		Changed:   change.Changed,
		Opened:    len(change.Opened),
		Phase:     change.PhaseAfter,
		Timestamp: now,
	})

	result.Board = sess.Engine.View()
	result.Events = buildEvents(change, result.Record, elapsed, now)

	if change.Finished() {
		s.log.Info("game finished",
			zap.String("session", sess.ID),
			zap.String("phase", string(change.PhaseAfter)),
			zap.Int("seconds", elapsed))
	}

	// Auto-save session after each command
	if err := s.sessions.Save(sess); err != nil {
		s.log.Warn("failed to persist session", zap.String("session", sessionID), zap.Error(err))
	}

	return result, nil
}

// submitRecord hands a won game to the leaderboard. Store failures are
// reported in the result rather than failing the move.
func (s *gameServiceImpl) submitRecord(ctx context.Context, sess *Session, seconds int) *RecordResult {
	res := &RecordResult{
		Player:  sess.Player,
		Seconds: seconds,
	}
	if sess.Preset != nil {
		res.Label = sess.Preset.Label
	}
	if s.records == nil {
		return res
	}

	added, err := s.records.Add(ctx, records.Record{
		PlayerName: res.Player,
		Difficulty: res.Label,
		Seconds:    seconds,
		RecordedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to store record",
			zap.String("session", sess.ID),
			zap.String("player", res.Player),
			zap.Error(err))
		res.Error = err.Error()
		return res
	}

	res.Stored = added.Stored
	res.NewBest = added.NewBest()
	res.Previous = added.Previous
	return res
}

func buildEvents(change *engine.Change, record *RecordResult, elapsed int, now time.Time) []GameEvent {
	var events []GameEvent
	target := change.Target

	switch change.Action {
	case engine.ActionMark:
		if change.Changed {
			events = append(events, GameEvent{
				Type:      "marked",
				Message:   fmt.Sprintf("Cell (%d,%d) is now %s", target.Row, target.Col, change.Mark),
				Timestamp: now,
				Position:  &target,
			})
		}
	default:
		if n := len(change.Opened); n > 0 && change.PhaseAfter != engine.Lost {
			events = append(events, GameEvent{
				Type:      "opened",
				Message:   fmt.Sprintf("Opened %d cell(s)", n),
				Timestamp: now,
				Position:  &target,
			})
		}
	}

	if !change.Finished() {
		return events
	}

	switch change.PhaseAfter {
	case engine.Lost:
		events = append(events, GameEvent{
			Type:      "lost",
			Message:   fmt.Sprintf("Boom! Mine at (%d,%d)", change.Detonated.Row, change.Detonated.Col),
			Timestamp: now,
			Position:  change.Detonated,
		})
	case engine.Won:
		events = append(events, GameEvent{
			Type:      "won",
			Message:   fmt.Sprintf("Board cleared in %ds", elapsed),
			Timestamp: now,
		})
		if record != nil && record.NewBest {
			events = append(events, GameEvent{
				Type:      "record",
				Message:   fmt.Sprintf("New personal best! %ds beats %ds", record.Seconds, record.Previous.Seconds),
				Timestamp: now,
			})
		}
	}
	return events
}

// Reset clears the board, the timer and any recorded result
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	sess.Engine.Reset()
	sess.StartedAt = nil
	sess.FinishedAt = nil
	sess.History = nil
	sess.Record = nil

	// Auto-save session after reset
	if err := s.sessions.Save(sess); err != nil {
		s.log.Warn("failed to persist session after reset", zap.String("session", sessionID), zap.Error(err))
	}

	return sess.Engine.View(), nil
}

// GetBoard returns the masked board
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Engine.View(), nil
}

// GetHistory returns paginated command history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	history := make([]HistoryEntry, len(sess.History))
	copy(history, sess.History)
	sess.Unlock()

	return paginate(history, opts), nil
}

func paginate(history []HistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []HistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			entries = append(entries, history[i])
		}
	} else if start < total {
		entries = append(entries, history[start:end]...)
	}

	return &HistoryResponse{
		Entries:     entries,
		Total:       total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListPresets returns available difficulty presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// GetPreset loads a single preset
func (s *gameServiceImpl) GetPreset(ctx context.Context, name string) (*Preset, error) {
	preset, err := s.configs.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrPresetNotFound, name, err)
	}
	return preset, nil
}

// SavePreset validates and stores a preset
func (s *gameServiceImpl) SavePreset(ctx context.Context, name string, preset *Preset) error {
	return s.configs.SaveConfig(name, preset)
}

// difficultyLabel maps a preset name to its leaderboard label; unknown
// names are treated as labels already
func (s *gameServiceImpl) difficultyLabel(difficulty string) string {
	if preset, err := s.configs.LoadConfig(difficulty); err == nil && preset != nil {
		return preset.Label
	}
	return difficulty
}

// Leaderboard returns the fastest wins for a difficulty
func (s *gameServiceImpl) Leaderboard(ctx context.Context, difficulty string, limit int) ([]records.Record, error) {
	if s.records == nil {
		return []records.Record{}, nil
	}
	return s.records.Best(ctx, s.difficultyLabel(difficulty), limit)
}

// PlayerBest returns a player's best time for a difficulty
func (s *gameServiceImpl) PlayerBest(ctx context.Context, player, difficulty string) (*records.Record, error) {
	if s.records == nil {
		return nil, records.ErrRecordNotFound
	}
	return s.records.PlayerBest(ctx, player, s.difficultyLabel(difficulty))
}
