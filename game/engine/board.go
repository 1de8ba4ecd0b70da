package engine

import "fmt"

// neighborOffsets lists the eight surrounding directions in a fixed order
var neighborOffsets = [8]Position{
	{Row: -1, Col: -1}, {Row: -1, Col: 0}, {Row: -1, Col: 1},
	{Row: 0, Col: -1}, {Row: 0, Col: 1},
	{Row: 1, Col: -1}, {Row: 1, Col: 0}, {Row: 1, Col: 1},
}

// Board stores the grid of cells and answers geometry queries.
// It enforces no game rules.
type Board struct {
	rows      int
	cols      int
	mineCount int
	cells     []Cell
}

// NewBoard creates a board of closed, mine-free cells
func NewBoard(rows, cols, mineCount int) (*Board, error) {
	if err := ValidateDimensions(rows, cols, mineCount); err != nil {
		return nil, err
	}

	b := &Board{
		rows:      rows,
		cols:      cols,
		mineCount: mineCount,
		cells:     make([]Cell, rows*cols),
	}
	b.Reset()
	return b, nil
}

// Rows returns the number of rows
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of columns
func (b *Board) Cols() int { return b.cols }

// MineCount returns the number of mines the board is configured for
func (b *Board) MineCount() int { return b.mineCount }

// Size returns the total number of cells
func (b *Board) Size() int { return b.rows * b.cols }

// InBounds checks whether the coordinate lies on the board
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}

func (b *Board) checkBounds(row, col int) error {
	if !b.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d board", ErrOutOfBounds, row, col, b.rows, b.cols)
	}
	return nil
}

// CellAt returns a copy of the cell at the coordinate
func (b *Board) CellAt(row, col int) (Cell, error) {
	if err := b.checkBounds(row, col); err != nil {
		return Cell{}, err
	}
	return b.cells[row*b.cols+col], nil
}

// cell returns the mutable cell; callers must check bounds first
func (b *Board) cell(p Position) *Cell {
	return &b.cells[p.Row*b.cols+p.Col]
}

// Neighbors returns the in-bounds coordinates around a cell
func (b *Board) Neighbors(row, col int) ([]Position, error) {
	if err := b.checkBounds(row, col); err != nil {
		return nil, err
	}
	return b.neighbors(Position{Row: row, Col: col}), nil
}

func (b *Board) neighbors(p Position) []Position {
	result := make([]Position, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		r, c := p.Row+d.Row, p.Col+d.Col
		if b.InBounds(r, c) {
			result = append(result, Position{Row: r, Col: c})
		}
	}
	return result
}

// Cells returns a row-major copy of every cell
func (b *Board) Cells() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Reset restores every cell to its initial closed, mine-free state
func (b *Board) Reset() {
	for i := range b.cells {
		b.cells[i].reset()
		b.cells[i].Row = i / b.cols
		b.cells[i].Col = i % b.cols
	}
}

// layMines marks the given positions as mines and computes adjacency
// counts for every other cell.
func (b *Board) layMines(mines []Position) {
	for _, p := range mines {
		b.cell(p).Mine = true
	}
	for i := range b.cells {
		c := &b.cells[i]
		if c.Mine {
			c.MinesAround = 0
			continue
		}
		count := 0
		for _, n := range b.neighbors(Position{Row: c.Row, Col: c.Col}) {
			if b.cell(n).Mine {
				count++
			}
		}
		c.MinesAround = count
	}
}
