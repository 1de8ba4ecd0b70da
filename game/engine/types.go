package engine

import "errors"

// MarkState represents the visible state of a cell
type MarkState string

const (
	Closed     MarkState = "closed"
	Flagged    MarkState = "flagged"
	Questioned MarkState = "questioned"
	Open       MarkState = "open"
)

// Phase represents the lifecycle stage of a game
type Phase string

const (
	Pending    Phase = "pending"
	InProgress Phase = "in_progress"
	Won        Phase = "won"
	Lost       Phase = "lost"
)

// IsTerminal reports whether no further moves are accepted.
func (p Phase) IsTerminal() bool {
	return p == Won || p == Lost
}

// Action names a player command applied to the engine
type Action string

const (
	ActionReveal Action = "reveal"
	ActionMark   Action = "mark"
	ActionChord  Action = "chord"
)

var (
	// ErrOutOfBounds is returned when a coordinate lies outside the board.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrConfiguration is returned when board dimensions or mine count are invalid.
	ErrConfiguration = errors.New("invalid board configuration")
	// ErrPlacement is returned when a mine placer produces an unusable layout.
	ErrPlacement = errors.New("invalid mine placement")
	// ErrInvalidState is returned when restoring a state that breaks board invariants.
	ErrInvalidState = errors.New("invalid game state")
)

// Position represents row,col coordinates
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell represents a single board position.
//
// Cells are handed out by value; only the engine mutates the board copy.
type Cell struct {
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	Mine        bool      `json:"mine"`
	MinesAround int       `json:"mines_around"`
	Mark        MarkState `json:"mark"`
	// PriorMark is the mark a mine carried before a loss forced it open.
	PriorMark MarkState `json:"prior_mark,omitempty"`
}

// IsOpen reports whether the cell has been revealed.
func (c Cell) IsOpen() bool { return c.Mark == Open }

func (c *Cell) reset() {
	c.Mine = false
	c.MinesAround = 0
	c.Mark = Closed
	c.PriorMark = ""
}

func (c *Cell) cycleMark() {
	switch c.Mark {
	case Closed:
		c.Mark = Flagged
	case Flagged:
		c.Mark = Questioned
	case Questioned:
		c.Mark = Closed
	}
}

// Change describes the effect of one engine command.
type Change struct {
	Action      Action     `json:"action"`
	Target      Position   `json:"target"`
	Changed     bool       `json:"changed"`
	Opened      []Position `json:"opened,omitempty"`
	Mark        MarkState  `json:"mark,omitempty"`
	Detonated   *Position  `json:"detonated,omitempty"`
	PhaseBefore Phase      `json:"phase_before"`
	PhaseAfter  Phase      `json:"phase_after"`
}

// Finished reports whether this change ended the game.
func (c *Change) Finished() bool {
	return !c.PhaseBefore.IsTerminal() && c.PhaseAfter.IsTerminal()
}

// CellView is the display-safe projection of a cell
type CellView struct {
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	Mark        MarkState `json:"mark"`
	MinesAround *int      `json:"mines_around,omitempty"`
	Mine        *bool     `json:"mine,omitempty"`
	PriorMark   MarkState `json:"prior_mark,omitempty"`
	Detonated   bool      `json:"detonated,omitempty"`
}

// BoardView is a masked snapshot of the game for players
type BoardView struct {
	Rows           int          `json:"rows"`
	Cols           int          `json:"cols"`
	MineCount      int          `json:"mine_count"`
	Phase          Phase        `json:"phase"`
	OpenedNonMine  int          `json:"opened_non_mine"`
	SafeCells      int          `json:"safe_cells"`
	FlaggedCount   int          `json:"flagged_count"`
	RemainingMines int          `json:"remaining_mines"`
	Cells          [][]CellView `json:"cells"`
}

// GameState is the complete, unmasked state used for persistence
type GameState struct {
	Rows          int        `json:"rows"`
	Cols          int        `json:"cols"`
	MineCount     int        `json:"mine_count"`
	Phase         Phase      `json:"phase"`
	OpenedNonMine int        `json:"opened_non_mine"`
	Mines         []Position `json:"mines,omitempty"`
	Detonated     *Position  `json:"detonated,omitempty"`
	Cells         []Cell     `json:"cells"`
}
