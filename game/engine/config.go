package engine

import "fmt"

// ValidateDimensions checks that a board of rows x cols can hold mineCount
// mines and still leave at least one safe cell.
func ValidateDimensions(rows, cols, mineCount int) error {
	if rows <= 0 {
		return fmt.Errorf("%w: rows must be positive, got %d", ErrConfiguration, rows)
	}
	if cols <= 0 {
		return fmt.Errorf("%w: cols must be positive, got %d", ErrConfiguration, cols)
	}
	if mineCount <= 0 || mineCount >= rows*cols {
		return fmt.Errorf("%w: mine count must be between 1 and %d for a %dx%d board, got %d",
			ErrConfiguration, rows*cols-1, rows, cols, mineCount)
	}
	return nil
}

// ValidateState checks a persisted state for consistency with the board rules
func ValidateState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("%w: state cannot be nil", ErrInvalidState)
	}
	if err := ValidateDimensions(state.Rows, state.Cols, state.MineCount); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if len(state.Cells) != state.Rows*state.Cols {
		return fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidState, state.Rows*state.Cols, len(state.Cells))
	}

	openSafe, openMines, mineCells := 0, 0, 0
	for i, c := range state.Cells {
		if c.Row != i/state.Cols || c.Col != i%state.Cols {
			return fmt.Errorf("%w: cell %d has coordinates (%d,%d)", ErrInvalidState, i, c.Row, c.Col)
		}
		switch c.Mark {
		case Closed, Flagged, Questioned, Open:
		default:
			return fmt.Errorf("%w: cell (%d,%d) has unknown mark %q", ErrInvalidState, c.Row, c.Col, c.Mark)
		}
		if c.Mine {
			mineCells++
			if c.Mark == Open {
				openMines++
			}
		} else if c.Mark == Open {
			openSafe++
		}
	}

	switch state.Phase {
	case Pending:
		if len(state.Mines) != 0 || mineCells != 0 || openSafe != 0 || state.OpenedNonMine != 0 {
			return fmt.Errorf("%w: pending game must have no mines and no open cells", ErrInvalidState)
		}
		return nil
	case InProgress, Won, Lost:
	default:
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidState, state.Phase)
	}

	if len(state.Mines) != state.MineCount || mineCells != state.MineCount {
		return fmt.Errorf("%w: expected %d mines, list has %d and grid has %d",
			ErrInvalidState, state.MineCount, len(state.Mines), mineCells)
	}
	for _, m := range state.Mines {
		if m.Row < 0 || m.Row >= state.Rows || m.Col < 0 || m.Col >= state.Cols ||
			!state.Cells[m.Row*state.Cols+m.Col].Mine {
			return fmt.Errorf("%w: mine list entry (%d,%d) does not match grid", ErrInvalidState, m.Row, m.Col)
		}
	}
	if state.OpenedNonMine != openSafe {
		return fmt.Errorf("%w: opened count %d does not match %d open safe cells", ErrInvalidState, state.OpenedNonMine, openSafe)
	}

	b := &Board{rows: state.Rows, cols: state.Cols, mineCount: state.MineCount, cells: state.Cells}
	for _, c := range state.Cells {
		if c.Mine {
			continue
		}
		want := 0
		for _, n := range b.neighbors(Position{Row: c.Row, Col: c.Col}) {
			if b.cell(n).Mine {
				want++
			}
		}
		if c.MinesAround != want {
			return fmt.Errorf("%w: cell (%d,%d) count %d, expected %d", ErrInvalidState, c.Row, c.Col, c.MinesAround, want)
		}
	}

	safe := state.Rows*state.Cols - state.MineCount
	switch state.Phase {
	case InProgress:
		if openMines != 0 || openSafe >= safe {
			return fmt.Errorf("%w: in-progress game cannot have open mines or every safe cell open", ErrInvalidState)
		}
	case Won:
		if openSafe != safe {
			return fmt.Errorf("%w: won game must have every safe cell open", ErrInvalidState)
		}
	case Lost:
		d := state.Detonated
		if d == nil || d.Row < 0 || d.Row >= state.Rows || d.Col < 0 || d.Col >= state.Cols ||
			!state.Cells[d.Row*state.Cols+d.Col].Mine {
			return fmt.Errorf("%w: lost game must record the detonated mine", ErrInvalidState)
		}
	}
	return nil
}
