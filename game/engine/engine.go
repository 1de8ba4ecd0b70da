package engine

import "math/rand/v2"

// Engine provides the main interface for game operations
type Engine interface {
	// Player commands
	Reveal(row, col int) (*Change, error)
	ToggleMark(row, col int) (*Change, error)
	Chord(row, col int) (*Change, error)
	Reset()

	// Session-level queries
	Phase() Phase
	Rows() int
	Cols() int
	MineCount() int
	OpenedNonMine() int
	FlaggedCount() int
	RemainingMines() int

	// Cell queries
	CellAt(row, col int) (Cell, error)
	Neighbors(row, col int) ([]Position, error)
	View() *BoardView

	// Persistence
	State() *GameState
	SetState(state *GameState) error
}

// GameEngine implements the Engine interface
type GameEngine struct {
	board         *Board
	placer        MinePlacer
	phase         Phase
	openedNonMine int
	mines         []Position
	detonated     *Position
}

// Option configures a GameEngine at construction
type Option func(*GameEngine)

// WithPlacer sets the mine placement strategy
func WithPlacer(p MinePlacer) Option {
	return func(e *GameEngine) {
		if p != nil {
			e.placer = p
		}
	}
}

// WithSeed makes mine placement reproducible
func WithSeed(seed uint64) Option {
	return func(e *GameEngine) {
		e.placer = NewSeededPlacer(seed)
	}
}

// WithRand shuffles placement using the given random source
func WithRand(rng *rand.Rand) Option {
	return func(e *GameEngine) {
		e.placer = NewShufflePlacer(rng)
	}
}

// NewGameEngine creates a new game engine for a rows x cols board
func NewGameEngine(rows, cols, mineCount int, opts ...Option) (*GameEngine, error) {
	board, err := NewBoard(rows, cols, mineCount)
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		board: board,
		phase: Pending,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.placer == nil {
		e.placer = NewShufflePlacer(nil)
	}
	return e, nil
}

// Reveal opens a cell. The first reveal of a game places the mines.
func (e *GameEngine) Reveal(row, col int) (*Change, error) {
	if err := e.board.checkBounds(row, col); err != nil {
		return nil, err
	}

	target := Position{Row: row, Col: col}
	change := e.newChange(ActionReveal, target)
	cell := e.board.cell(target)
	if e.phase.IsTerminal() || cell.Mark != Closed {
		return e.finish(change), nil
	}

	if e.phase == Pending {
		mines, err := e.placer.Place(e.board.rows, e.board.cols, e.board.mineCount, target)
		if err != nil {
			return nil, err
		}
		if err := checkPlacement(e.board, mines, target); err != nil {
			return nil, err
		}
		e.board.layMines(mines)
		e.mines = mines
		e.phase = InProgress
	}

	if cell.Mine {
		change.Opened = e.detonate(target, change.Opened)
		return e.finish(change), nil
	}

	change.Opened = e.floodOpen(target, change.Opened)
	e.evaluateWin()
	return e.finish(change), nil
}

// ToggleMark cycles a closed cell through flagged and questioned
func (e *GameEngine) ToggleMark(row, col int) (*Change, error) {
	if err := e.board.checkBounds(row, col); err != nil {
		return nil, err
	}

	target := Position{Row: row, Col: col}
	change := e.newChange(ActionMark, target)
	cell := e.board.cell(target)
	if !e.phase.IsTerminal() && cell.Mark != Open {
		cell.cycleMark()
		change.Changed = true
	}
	change.Mark = cell.Mark
	return e.finish(change), nil
}

// Chord opens the unflagged neighbors of a satisfied number
func (e *GameEngine) Chord(row, col int) (*Change, error) {
	if err := e.board.checkBounds(row, col); err != nil {
		return nil, err
	}

	target := Position{Row: row, Col: col}
	change := e.newChange(ActionChord, target)
	cell := e.board.cell(target)
	if e.phase != InProgress || cell.Mark != Open || cell.MinesAround == 0 {
		return e.finish(change), nil
	}

	neighbors := e.board.neighbors(target)
	flags := 0
	for _, n := range neighbors {
		if e.board.cell(n).Mark == Flagged {
			flags++
		}
	}
	if flags != cell.MinesAround {
		return e.finish(change), nil
	}

	for _, n := range neighbors {
		nc := e.board.cell(n)
		if nc.Mark == Open || nc.Mark == Flagged {
			continue
		}
		if nc.Mine {
			change.Opened = e.detonate(n, change.Opened)
			return e.finish(change), nil
		}
		change.Opened = e.floodOpen(n, change.Opened)
	}

	e.evaluateWin()
	return e.finish(change), nil
}

// Reset starts a new attempt on the same board. The placer is kept.
func (e *GameEngine) Reset() {
	e.board.Reset()
	e.phase = Pending
	e.openedNonMine = 0
	e.mines = nil
	e.detonated = nil
}

// floodOpen opens start and expands through zero-count cells using an
// explicit worklist. Already open, flagged and mine cells are skipped.
func (e *GameEngine) floodOpen(start Position, opened []Position) []Position {
	stack := []Position{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c := e.board.cell(p)
		if c.Mark == Open || c.Mark == Flagged || c.Mine {
			continue
		}
		c.Mark = Open
		e.openedNonMine++
		opened = append(opened, p)

		if c.MinesAround > 0 {
			continue
		}
		for _, n := range e.board.neighbors(p) {
			nc := e.board.cell(n)
			if nc.Mark != Open && nc.Mark != Flagged && !nc.Mine {
				stack = append(stack, n)
			}
		}
	}
	return opened
}

// detonate opens the hit mine and every other mine, ending the game
func (e *GameEngine) detonate(hit Position, opened []Position) []Position {
	e.phase = Lost
	e.detonated = &hit

	opened = e.forceOpen(hit, opened)
	for _, m := range e.mines {
		if m != hit {
			opened = e.forceOpen(m, opened)
		}
	}
	return opened
}

func (e *GameEngine) forceOpen(p Position, opened []Position) []Position {
	c := e.board.cell(p)
	if c.Mark == Open {
		return opened
	}
	c.PriorMark = c.Mark
	c.Mark = Open
	return append(opened, p)
}

func (e *GameEngine) evaluateWin() {
	if e.phase == InProgress && e.openedNonMine == e.board.Size()-e.board.mineCount {
		e.phase = Won
	}
}

func (e *GameEngine) newChange(action Action, target Position) *Change {
	return &Change{Action: action, Target: target, PhaseBefore: e.phase}
}

func (e *GameEngine) finish(change *Change) *Change {
	change.PhaseAfter = e.phase
	if len(change.Opened) > 0 {
		change.Changed = true
	}
	if e.detonated != nil && change.Finished() {
		d := *e.detonated
		change.Detonated = &d
	}
	return change
}

// Phase returns the current game phase
func (e *GameEngine) Phase() Phase {
	return e.phase
}

// Rows returns the board height
func (e *GameEngine) Rows() int {
	return e.board.rows
}

// Cols returns the board width
func (e *GameEngine) Cols() int {
	return e.board.cols
}

// MineCount returns the configured number of mines
func (e *GameEngine) MineCount() int {
	return e.board.mineCount
}

// OpenedNonMine returns how many safe cells have been opened
func (e *GameEngine) OpenedNonMine() int {
	return e.openedNonMine
}

// FlaggedCount returns the number of flagged cells
func (e *GameEngine) FlaggedCount() int {
	return CountMarks(e.board.cells, Flagged)
}

// RemainingMines returns the mine count minus placed flags. It goes
// negative when the player over-flags.
func (e *GameEngine) RemainingMines() int {
	return e.board.mineCount - e.FlaggedCount()
}

// CellAt returns the raw cell, including hidden state
func (e *GameEngine) CellAt(row, col int) (Cell, error) {
	return e.board.CellAt(row, col)
}

// Neighbors returns the in-bounds neighbors of a cell
func (e *GameEngine) Neighbors(row, col int) ([]Position, error) {
	return e.board.Neighbors(row, col)
}

// Mines returns the placed mine positions; empty until the first reveal
func (e *GameEngine) Mines() []Position {
	out := make([]Position, len(e.mines))
	copy(out, e.mines)
	return out
}

// Detonated returns the mine that lost the game, if any
func (e *GameEngine) Detonated() (Position, bool) {
	if e.detonated == nil {
		return Position{}, false
	}
	return *e.detonated, true
}

// View returns a snapshot that hides mines until the game is over
func (e *GameEngine) View() *BoardView {
	terminal := e.phase.IsTerminal()
	flagged := e.FlaggedCount()
	view := &BoardView{
		Rows:           e.board.rows,
		Cols:           e.board.cols,
		MineCount:      e.board.mineCount,
		Phase:          e.phase,
		OpenedNonMine:  e.openedNonMine,
		SafeCells:      e.board.Size() - e.board.mineCount,
		FlaggedCount:   flagged,
		RemainingMines: e.board.mineCount - flagged,
		Cells:          make([][]CellView, e.board.rows),
	}

	for r := 0; r < e.board.rows; r++ {
		row := make([]CellView, e.board.cols)
		for c := 0; c < e.board.cols; c++ {
			row[c] = e.cellView(*e.board.cell(Position{Row: r, Col: c}), terminal)
		}
		view.Cells[r] = row
	}
	return view
}

func (e *GameEngine) cellView(c Cell, terminal bool) CellView {
	v := CellView{Row: c.Row, Col: c.Col, Mark: c.Mark}
	if c.Mark == Open && !c.Mine {
		n := c.MinesAround
		v.MinesAround = &n
	}
	if terminal {
		mine := c.Mine
		v.Mine = &mine
		v.PriorMark = c.PriorMark
		if e.detonated != nil && e.detonated.Row == c.Row && e.detonated.Col == c.Col {
			v.Detonated = true
		}
	}
	return v
}

// State returns a deep copy of the full game state
func (e *GameEngine) State() *GameState {
	state := &GameState{
		Rows:          e.board.rows,
		Cols:          e.board.cols,
		MineCount:     e.board.mineCount,
		Phase:         e.phase,
		OpenedNonMine: e.openedNonMine,
		Mines:         e.Mines(),
		Cells:         e.board.Cells(),
	}
	if e.detonated != nil {
		d := *e.detonated
		state.Detonated = &d
	}
	return state
}

// SetState replaces the game state (used for persistence loading).
// The state is validated first; on error the engine is unchanged.
func (e *GameEngine) SetState(state *GameState) error {
	if err := ValidateState(state); err != nil {
		return err
	}

	board := &Board{
		rows:      state.Rows,
		cols:      state.Cols,
		mineCount: state.MineCount,
		cells:     make([]Cell, len(state.Cells)),
	}
	copy(board.cells, state.Cells)

	e.board = board
	e.phase = state.Phase
	e.openedNonMine = state.OpenedNonMine
	e.mines = make([]Position, len(state.Mines))
	copy(e.mines, state.Mines)
	e.detonated = nil
	if state.Detonated != nil {
		d := *state.Detonated
		e.detonated = &d
	}
	return nil
}
