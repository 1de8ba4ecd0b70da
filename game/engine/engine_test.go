package engine

import (
	"errors"
	"testing"
)

// fixedEngine builds an engine whose mines are placed at exactly the given positions
func fixedEngine(t *testing.T, rows, cols int, mines ...Position) *GameEngine {
	t.Helper()
	e, err := NewGameEngine(rows, cols, len(mines), WithPlacer(FixedPlacer(mines)))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return e
}

func mustCell(t *testing.T, e *GameEngine, row, col int) Cell {
	t.Helper()
	c, err := e.CellAt(row, col)
	if err != nil {
		t.Fatalf("Failed to read cell (%d,%d): %v", row, col, err)
	}
	return c
}

func mustReveal(t *testing.T, e *GameEngine, row, col int) *Change {
	t.Helper()
	change, err := e.Reveal(row, col)
	if err != nil {
		t.Fatalf("Failed to reveal (%d,%d): %v", row, col, err)
	}
	return change
}

func mustMark(t *testing.T, e *GameEngine, row, col int) *Change {
	t.Helper()
	change, err := e.ToggleMark(row, col)
	if err != nil {
		t.Fatalf("Failed to toggle mark (%d,%d): %v", row, col, err)
	}
	return change
}

func marks(e *GameEngine) []MarkState {
	cells := e.board.Cells()
	out := make([]MarkState, len(cells))
	for i, c := range cells {
		out[i] = c.Mark
	}
	return out
}

func TestNewGameEngine(t *testing.T) {
	e, err := NewGameEngine(10, 12, 15)
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	if e.Phase() != Pending {
		t.Errorf("Expected phase %s, got %s", Pending, e.Phase())
	}
	if e.Rows() != 10 || e.Cols() != 12 || e.MineCount() != 15 {
		t.Errorf("Expected 10x12/15, got %dx%d/%d", e.Rows(), e.Cols(), e.MineCount())
	}
	if e.OpenedNonMine() != 0 {
		t.Errorf("Expected no opened cells, got %d", e.OpenedNonMine())
	}
	if len(e.Mines()) != 0 {
		t.Errorf("Expected no mines before the first reveal, got %d", len(e.Mines()))
	}
	for _, c := range e.board.Cells() {
		if c.Mark != Closed || c.Mine || c.MinesAround != 0 {
			t.Fatalf("Expected fresh cell at (%d,%d), got %+v", c.Row, c.Col, c)
		}
	}
	if e.RemainingMines() != 15 {
		t.Errorf("Expected 15 remaining mines, got %d", e.RemainingMines())
	}
}

func TestNewGameEngineInvalidConfig(t *testing.T) {
	tests := []struct {
		name             string
		rows, cols, mine int
	}{
		{"zero rows", 0, 5, 1},
		{"negative cols", 5, -1, 1},
		{"no mines", 5, 5, 0},
		{"negative mines", 5, 5, -3},
		{"mines fill board", 3, 3, 9},
		{"mines exceed board", 3, 3, 12},
		{"single cell", 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewGameEngine(tt.rows, tt.cols, tt.mine)
			if err == nil {
				t.Fatal("Expected configuration error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
			if e != nil {
				t.Error("Expected nil engine on error")
			}
		})
	}
}

func TestRevealFloodFillsToWin(t *testing.T) {
	e := fixedEngine(t, 5, 5, Position{Row: 4, Col: 4})

	change := mustReveal(t, e, 0, 0)

	if e.Phase() != Won {
		t.Errorf("Expected phase %s, got %s", Won, e.Phase())
	}
	if e.OpenedNonMine() != 24 {
		t.Errorf("Expected 24 opened cells, got %d", e.OpenedNonMine())
	}
	if len(change.Opened) != 24 {
		t.Errorf("Expected change to list 24 opened cells, got %d", len(change.Opened))
	}
	if !change.Finished() || change.PhaseBefore != Pending {
		t.Errorf("Expected change from pending to finished, got %s -> %s", change.PhaseBefore, change.PhaseAfter)
	}
	if c := mustCell(t, e, 4, 4); c.Mark != Closed || !c.Mine {
		t.Errorf("Expected mine at (4,4) to stay closed, got %+v", c)
	}
	if c := mustCell(t, e, 3, 3); c.MinesAround != 1 || !c.IsOpen() {
		t.Errorf("Expected (3,3) open with count 1, got %+v", c)
	}
}

func TestRevealNumberedCellStops(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})

	change := mustReveal(t, e, 0, 0)

	c := mustCell(t, e, 0, 0)
	if !c.IsOpen() || c.MinesAround != 1 {
		t.Errorf("Expected (0,0) open with count 1, got %+v", c)
	}
	if e.OpenedNonMine() != 1 || len(change.Opened) != 1 {
		t.Errorf("Expected a single opened cell, got %d (change %d)", e.OpenedNonMine(), len(change.Opened))
	}
	if e.Phase() != InProgress {
		t.Errorf("Expected phase %s, got %s", InProgress, e.Phase())
	}
}

func TestRevealTwoByTwo(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				e, err := NewGameEngine(2, 2, 1, WithSeed(seed))
				if err != nil {
					t.Fatalf("Failed to create engine: %v", err)
				}
				mustReveal(t, e, r, c)

				won := e.Phase() == Won
				single := e.Phase() == InProgress && e.OpenedNonMine() == 1
				if !won && !single {
					t.Fatalf("seed %d (%d,%d): expected win or a single opened cell, got %s with %d opened",
						seed, r, c, e.Phase(), e.OpenedNonMine())
				}
			}
		}
	}
}

func TestRevealMarkedCellIsNoOp(t *testing.T) {
	for _, presses := range []int{1, 2} {
		e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})
		mustReveal(t, e, 0, 0)
		for i := 0; i < presses; i++ {
			mustMark(t, e, 2, 0)
		}
		before := mustCell(t, e, 2, 0)
		opened := e.OpenedNonMine()
		phase := e.Phase()

		change := mustReveal(t, e, 2, 0)

		if change.Changed {
			t.Errorf("Expected no change when revealing a %s cell", before.Mark)
		}
		if after := mustCell(t, e, 2, 0); after != before {
			t.Errorf("Expected cell unchanged, got %+v want %+v", after, before)
		}
		if e.OpenedNonMine() != opened || e.Phase() != phase {
			t.Errorf("Expected opened %d / phase %s unchanged, got %d / %s", opened, phase, e.OpenedNonMine(), e.Phase())
		}
	}
}

func TestRevealFlaggedCellBeforeFirstReveal(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 2, Col: 2})
	mustMark(t, e, 0, 0)

	change := mustReveal(t, e, 0, 0)

	if change.Changed || e.Phase() != Pending {
		t.Errorf("Expected flagged first reveal to be ignored, got phase %s", e.Phase())
	}
	if len(e.Mines()) != 0 {
		t.Error("Expected no mines placed")
	}
}

func TestRevealOpenCellIsNoOp(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})
	mustReveal(t, e, 0, 0)

	change := mustReveal(t, e, 0, 0)

	if change.Changed {
		t.Error("Expected revealing an open cell to do nothing")
	}
	if e.OpenedNonMine() != 1 {
		t.Errorf("Expected 1 opened cell, got %d", e.OpenedNonMine())
	}
}

func TestRevealMineLoses(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 0, Col: 0}, Position{Row: 2, Col: 2})
	mustReveal(t, e, 1, 1)
	mustMark(t, e, 2, 2) // correct flag
	mustMark(t, e, 0, 2)
	mustMark(t, e, 0, 2) // questioned safe cell
	mustMark(t, e, 2, 0) // wrong flag

	before := e.board.Cells()
	change := mustReveal(t, e, 0, 0)

	if e.Phase() != Lost {
		t.Fatalf("Expected phase %s, got %s", Lost, e.Phase())
	}
	if change.Detonated == nil || *change.Detonated != (Position{Row: 0, Col: 0}) {
		t.Errorf("Expected detonation at (0,0), got %v", change.Detonated)
	}
	if d, ok := e.Detonated(); !ok || d != (Position{Row: 0, Col: 0}) {
		t.Errorf("Expected engine to report detonation at (0,0), got %v %v", d, ok)
	}

	for i, after := range e.board.Cells() {
		if after.Mine {
			if after.Mark != Open {
				t.Errorf("Expected mine (%d,%d) open, got %s", after.Row, after.Col, after.Mark)
			}
			if after.PriorMark != before[i].Mark {
				t.Errorf("Expected mine (%d,%d) prior mark %s, got %s", after.Row, after.Col, before[i].Mark, after.PriorMark)
			}
			continue
		}
		if after.Mark != before[i].Mark {
			t.Errorf("Expected safe cell (%d,%d) to keep mark %s, got %s", after.Row, after.Col, before[i].Mark, after.Mark)
		}
	}
	if e.OpenedNonMine() != 1 {
		t.Errorf("Expected opened count to stay 1, got %d", e.OpenedNonMine())
	}
}

func TestCommandsAfterGameOverAreNoOps(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 0, Col: 0})
	mustReveal(t, e, 2, 2)
	if e.Phase() != Won {
		t.Fatalf("Expected win, got %s", e.Phase())
	}
	before := marks(e)

	if c := mustReveal(t, e, 0, 0); c.Changed {
		t.Error("Expected reveal after win to be ignored")
	}
	if c := mustMark(t, e, 0, 0); c.Changed {
		t.Error("Expected mark after win to be ignored")
	}
	if c, err := e.Chord(0, 1); err != nil || c.Changed {
		t.Errorf("Expected chord after win to be ignored, got %v %v", c, err)
	}
	after := marks(e)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("Expected marks unchanged at %d: %s -> %s", i, before[i], after[i])
		}
	}
	if e.Phase() != Won {
		t.Errorf("Expected phase to remain %s, got %s", Won, e.Phase())
	}
}

func TestOutOfBounds(t *testing.T) {
	coords := []Position{{Row: -1, Col: 0}, {Row: 0, Col: -1}, {Row: 4, Col: 0}, {Row: 0, Col: 5}}
	ops := map[string]func(e *GameEngine, p Position) error{
		"reveal": func(e *GameEngine, p Position) error { _, err := e.Reveal(p.Row, p.Col); return err },
		"mark":   func(e *GameEngine, p Position) error { _, err := e.ToggleMark(p.Row, p.Col); return err },
		"chord":  func(e *GameEngine, p Position) error { _, err := e.Chord(p.Row, p.Col); return err },
		"cellAt": func(e *GameEngine, p Position) error { _, err := e.CellAt(p.Row, p.Col); return err },
		"neighbors": func(e *GameEngine, p Position) error {
			_, err := e.Neighbors(p.Row, p.Col)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			e, err := NewGameEngine(4, 5, 3, WithSeed(1))
			if err != nil {
				t.Fatalf("Failed to create engine: %v", err)
			}
			for _, p := range coords {
				err := op(e, p)
				if !errors.Is(err, ErrOutOfBounds) {
					t.Errorf("Expected ErrOutOfBounds for %v, got %v", p, err)
				}
			}
			if e.Phase() != Pending || len(e.Mines()) != 0 {
				t.Errorf("Expected engine untouched, got phase %s", e.Phase())
			}
		})
	}
}

func TestToggleMarkCycle(t *testing.T) {
	e, err := NewGameEngine(4, 4, 2, WithSeed(3))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	expected := []MarkState{Flagged, Questioned, Closed, Flagged}
	for i, want := range expected {
		change := mustMark(t, e, 1, 2)
		if change.Mark != want {
			t.Errorf("Toggle %d: expected %s, got %s", i+1, want, change.Mark)
		}
		if got := mustCell(t, e, 1, 2).Mark; got != want {
			t.Errorf("Toggle %d: expected cell %s, got %s", i+1, want, got)
		}
		if !change.Changed {
			t.Errorf("Toggle %d: expected change", i+1)
		}
	}
	if e.FlaggedCount() != 1 || e.RemainingMines() != 1 {
		t.Errorf("Expected 1 flag and 1 remaining, got %d and %d", e.FlaggedCount(), e.RemainingMines())
	}
}

func TestToggleMarkOpenCellIsNoOp(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})
	mustReveal(t, e, 0, 0)

	change := mustMark(t, e, 0, 0)

	if change.Changed || change.Mark != Open {
		t.Errorf("Expected open cell to ignore marks, got %+v", change)
	}
}

func TestRemainingMinesCanGoNegative(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})
	mustMark(t, e, 0, 0)
	mustMark(t, e, 0, 1)

	if e.RemainingMines() != -1 {
		t.Errorf("Expected -1 remaining mines, got %d", e.RemainingMines())
	}
}

func TestChordOpensNeighborsWhenSatisfied(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 0, Col: 0})
	mustReveal(t, e, 1, 1)

	noop, err := e.Chord(1, 1)
	if err != nil {
		t.Fatalf("Failed to chord: %v", err)
	}
	if noop.Changed || e.OpenedNonMine() != 1 {
		t.Fatalf("Expected chord without flags to do nothing, opened %d", e.OpenedNonMine())
	}

	mustMark(t, e, 0, 0)
	change, err := e.Chord(1, 1)
	if err != nil {
		t.Fatalf("Failed to chord: %v", err)
	}

	if len(change.Opened) != 7 {
		t.Errorf("Expected chord to open 7 cells, got %d", len(change.Opened))
	}
	if e.Phase() != Won {
		t.Errorf("Expected phase %s, got %s", Won, e.Phase())
	}
	if c := mustCell(t, e, 0, 0); c.Mark != Flagged {
		t.Errorf("Expected flagged mine to stay flagged, got %s", c.Mark)
	}
}

func TestChordWithWrongFlagLoses(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 0, Col: 0})
	mustReveal(t, e, 1, 1)
	mustMark(t, e, 0, 1)

	change, err := e.Chord(1, 1)
	if err != nil {
		t.Fatalf("Failed to chord: %v", err)
	}

	if e.Phase() != Lost {
		t.Fatalf("Expected phase %s, got %s", Lost, e.Phase())
	}
	if change.Detonated == nil || *change.Detonated != (Position{Row: 0, Col: 0}) {
		t.Errorf("Expected detonation at (0,0), got %v", change.Detonated)
	}
	if c := mustCell(t, e, 0, 1); c.Mark != Flagged {
		t.Errorf("Expected wrong flag to remain, got %s", c.Mark)
	}
}

func TestChordPreconditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, e *GameEngine)
		row   int
		col   int
	}{
		{"pending board", func(t *testing.T, e *GameEngine) {}, 1, 1},
		{"closed target", func(t *testing.T, e *GameEngine) { mustReveal(t, e, 1, 1) }, 2, 2},
		{"flagged target", func(t *testing.T, e *GameEngine) {
			mustReveal(t, e, 1, 1)
			mustMark(t, e, 2, 2)
		}, 2, 2},
		{"too many flags", func(t *testing.T, e *GameEngine) {
			mustReveal(t, e, 1, 1)
			mustMark(t, e, 0, 0)
			mustMark(t, e, 2, 2)
		}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fixedEngine(t, 3, 3, Position{Row: 0, Col: 0})
			tt.setup(t, e)
			before := marks(e)
			phase := e.Phase()

			change, err := e.Chord(tt.row, tt.col)
			if err != nil {
				t.Fatalf("Failed to chord: %v", err)
			}
			if change.Changed || e.Phase() != phase {
				t.Errorf("Expected no-op, got changed=%v phase %s", change.Changed, e.Phase())
			}
			after := marks(e)
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("Expected marks unchanged at %d: %s -> %s", i, before[i], after[i])
				}
			}
		})
	}
}

func TestChordOnZeroCellIsNoOp(t *testing.T) {
	e := fixedEngine(t, 4, 4, Position{Row: 3, Col: 3})
	mustReveal(t, e, 0, 1)
	if e.Phase() != Won {
		t.Fatalf("Expected flood win, got %s", e.Phase())
	}

	e = fixedEngine(t, 4, 4, Position{Row: 3, Col: 3}, Position{Row: 3, Col: 0})
	mustReveal(t, e, 0, 0)
	change, err := e.Chord(0, 0)
	if err != nil {
		t.Fatalf("Failed to chord: %v", err)
	}
	if change.Changed {
		t.Error("Expected chord on a zero cell to do nothing")
	}
}

func TestReset(t *testing.T) {
	e, err := NewGameEngine(6, 6, 5, WithSeed(11))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	mustReveal(t, e, 2, 2)
	mustMark(t, e, 5, 5)
	for _, m := range e.Mines() {
		if e.Phase().IsTerminal() {
			break
		}
		mustReveal(t, e, m.Row, m.Col)
	}

	e.Reset()

	if e.Phase() != Pending {
		t.Errorf("Expected phase %s after reset, got %s", Pending, e.Phase())
	}
	if e.OpenedNonMine() != 0 || len(e.Mines()) != 0 {
		t.Errorf("Expected counters cleared, got opened %d mines %d", e.OpenedNonMine(), len(e.Mines()))
	}
	if _, ok := e.Detonated(); ok {
		t.Error("Expected detonation cleared")
	}
	for _, c := range e.board.Cells() {
		if c.Mark != Closed || c.Mine || c.MinesAround != 0 || c.PriorMark != "" {
			t.Fatalf("Expected fresh cell after reset, got %+v", c)
		}
	}

	mustReveal(t, e, 0, 0)
	if e.Phase() == Pending {
		t.Error("Expected reveal after reset to start a new game")
	}
	if c := mustCell(t, e, 0, 0); c.Mine {
		t.Error("Expected first reveal after reset to be safe")
	}
}

func TestSeededPlacementIsReproducible(t *testing.T) {
	a, _ := NewGameEngine(12, 12, 20, WithSeed(99))
	b, _ := NewGameEngine(12, 12, 20, WithSeed(99))
	mustReveal(t, a, 6, 6)
	mustReveal(t, b, 6, 6)

	ma, mb := a.Mines(), b.Mines()
	if len(ma) != len(mb) {
		t.Fatalf("Expected equal mine counts, got %d and %d", len(ma), len(mb))
	}
	for i := range ma {
		if ma[i] != mb[i] {
			t.Fatalf("Expected identical placement, differ at %d: %v vs %v", i, ma[i], mb[i])
		}
	}
}

func TestPlacementErrorLeavesEnginePending(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})

	_, err := e.Reveal(1, 1)
	if !errors.Is(err, ErrPlacement) {
		t.Fatalf("Expected ErrPlacement, got %v", err)
	}
	if e.Phase() != Pending || e.OpenedNonMine() != 0 {
		t.Errorf("Expected engine untouched, got %s with %d opened", e.Phase(), e.OpenedNonMine())
	}
	for _, c := range e.board.Cells() {
		if c.Mine || c.Mark != Closed {
			t.Fatalf("Expected no mine laid, got %+v", c)
		}
	}
}

type brokenPlacer struct{ mines []Position }

func (p brokenPlacer) Place(rows, cols, count int, exclude Position) ([]Position, error) {
	return p.mines, nil
}

func TestEngineRejectsBadPlacerOutput(t *testing.T) {
	tests := []struct {
		name  string
		mines []Position
	}{
		{"too few", []Position{{Row: 0, Col: 0}}},
		{"duplicate", []Position{{Row: 0, Col: 0}, {Row: 0, Col: 0}}},
		{"out of bounds", []Position{{Row: 0, Col: 0}, {Row: 3, Col: 3}}},
		{"excluded cell", []Position{{Row: 0, Col: 0}, {Row: 2, Col: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewGameEngine(3, 3, 2, WithPlacer(brokenPlacer{mines: tt.mines}))
			if err != nil {
				t.Fatalf("Failed to create engine: %v", err)
			}
			if _, err := e.Reveal(2, 2); !errors.Is(err, ErrPlacement) {
				t.Errorf("Expected ErrPlacement, got %v", err)
			}
			if e.Phase() != Pending {
				t.Errorf("Expected pending, got %s", e.Phase())
			}
		})
	}
}

func TestViewMasksHiddenState(t *testing.T) {
	e := fixedEngine(t, 3, 3, Position{Row: 1, Col: 1})
	mustReveal(t, e, 0, 0)

	view := e.View()
	if view.Phase != InProgress || view.SafeCells != 8 || view.OpenedNonMine != 1 {
		t.Errorf("Unexpected view header: %+v", view)
	}
	for _, row := range view.Cells {
		for _, c := range row {
			if c.Mine != nil {
				t.Errorf("Expected mine flag hidden at (%d,%d)", c.Row, c.Col)
			}
			if c.Mark != Open && c.MinesAround != nil {
				t.Errorf("Expected count hidden for closed cell (%d,%d)", c.Row, c.Col)
			}
		}
	}
	if n := view.Cells[0][0].MinesAround; n == nil || *n != 1 {
		t.Errorf("Expected open cell count 1, got %v", n)
	}

	mustReveal(t, e, 1, 1)
	view = e.View()
	center := view.Cells[1][1]
	if center.Mine == nil || !*center.Mine || !center.Detonated {
		t.Errorf("Expected detonated mine visible after loss, got %+v", center)
	}
	if corner := view.Cells[2][2]; corner.Mine == nil || *corner.Mine {
		t.Errorf("Expected safe cell marked as not a mine after loss, got %+v", corner)
	}
}

func TestStateRoundTrip(t *testing.T) {
	original, err := NewGameEngine(8, 8, 10, WithSeed(5))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	mustReveal(t, original, 4, 4)
	flag := original.Mines()[0]
	mustMark(t, original, flag.Row, flag.Col)

	restored, err := NewGameEngine(2, 2, 1)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if err := restored.SetState(original.State()); err != nil {
		t.Fatalf("Failed to restore state: %v", err)
	}

	if restored.Rows() != 8 || restored.Phase() != original.Phase() || restored.OpenedNonMine() != original.OpenedNonMine() {
		t.Errorf("Expected restored engine to match original")
	}
	a, b := original.board.Cells(), restored.board.Cells()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Cell %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	// The restored engine keeps playing from the same board.
	for _, c := range restored.board.Cells() {
		if !c.Mine && c.Mark == Closed {
			mustReveal(t, restored, c.Row, c.Col)
		}
	}
	if restored.Phase() != Won {
		t.Errorf("Expected restored game to be winnable, got %s", restored.Phase())
	}
	if original.Phase() == Won {
		t.Error("Expected original engine unaffected by restored play")
	}
}

func TestSetStateRejectsInvalidState(t *testing.T) {
	base, _ := NewGameEngine(4, 4, 3, WithSeed(8))
	mustReveal(t, base, 0, 0)

	tests := []struct {
		name   string
		mutate func(s *GameState) *GameState
	}{
		{"nil state", func(s *GameState) *GameState { return nil }},
		{"bad dimensions", func(s *GameState) *GameState { s.Rows = 0; return s }},
		{"missing cells", func(s *GameState) *GameState { s.Cells = s.Cells[:3]; return s }},
		{"unknown phase", func(s *GameState) *GameState { s.Phase = "paused"; return s }},
		{"opened mismatch", func(s *GameState) *GameState { s.OpenedNonMine++; return s }},
		{"mine list mismatch", func(s *GameState) *GameState { s.Mines = s.Mines[:1]; return s }},
		{"bad count", func(s *GameState) *GameState {
			for i := range s.Cells {
				if !s.Cells[i].Mine {
					s.Cells[i].MinesAround = 9
					break
				}
			}
			return s
		}},
		{"lost without detonation", func(s *GameState) *GameState { s.Phase = Lost; return s }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := NewGameEngine(4, 4, 3, WithSeed(8))
			err := e.SetState(tt.mutate(base.State()))
			if !errors.Is(err, ErrInvalidState) {
				t.Errorf("Expected ErrInvalidState, got %v", err)
			}
			if e.Phase() != Pending {
				t.Errorf("Expected engine unchanged, got %s", e.Phase())
			}
		})
	}
}
