package engine

// CountMarks counts the cells carrying a specific mark
func CountMarks(cells []Cell, mark MarkState) int {
	count := 0
	for _, c := range cells {
		if c.Mark == mark {
			count++
		}
	}
	return count
}

// CountMines counts the mine cells in a slice
func CountMines(cells []Cell) int {
	count := 0
	for _, c := range cells {
		if c.Mine {
			count++
		}
	}
	return count
}

// MineDensity returns the fraction of cells that are mines
func MineDensity(rows, cols, mineCount int) float64 {
	if rows <= 0 || cols <= 0 {
		return 0
	}
	return float64(mineCount) / float64(rows*cols)
}

// Glyph returns a one-character symbol for a view cell:
// '#' closed, 'F' flag, '?' question, '*' mine, '.' empty, digits for counts.
func Glyph(v CellView) byte {
	switch v.Mark {
	case Flagged:
		return 'F'
	case Questioned:
		return '?'
	case Open:
		if v.Mine != nil && *v.Mine {
			return '*'
		}
		if v.MinesAround != nil && *v.MinesAround > 0 {
			return byte('0' + *v.MinesAround)
		}
		return '.'
	}
	return '#'
}
