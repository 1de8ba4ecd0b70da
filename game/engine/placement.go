package engine

import (
	"fmt"
	"math/rand/v2"
)

// MinePlacer chooses mine positions for a board once the first reveal is known.
// Implementations must return exactly count distinct in-bounds positions,
// none equal to exclude.
type MinePlacer interface {
	Place(rows, cols, count int, exclude Position) ([]Position, error)
}

// ShufflePlacer shuffles the non-excluded coordinates and takes the first
// count of them. Running time is bounded by the board size.
type ShufflePlacer struct {
	rng *rand.Rand
}

// NewShufflePlacer creates a shuffle placer over the given random source.
// A nil source uses a randomly seeded PCG.
func NewShufflePlacer(rng *rand.Rand) *ShufflePlacer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ShufflePlacer{rng: rng}
}

// NewSeededPlacer creates a deterministic shuffle placer
func NewSeededPlacer(seed uint64) *ShufflePlacer {
	return NewShufflePlacer(seededRand(seed))
}

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Place shuffles every cell but the excluded one and takes the first count
func (p *ShufflePlacer) Place(rows, cols, count int, exclude Position) ([]Position, error) {
	candidates := make([]Position, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == exclude.Row && c == exclude.Col {
				continue
			}
			candidates = append(candidates, Position{Row: r, Col: c})
		}
	}
	if count > len(candidates) {
		return nil, fmt.Errorf("%w: %d mines do not fit in %d free cells", ErrPlacement, count, len(candidates))
	}

	// Partial Fisher-Yates: only the first count slots need to be settled.
	for i := 0; i < count; i++ {
		j := i + p.rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:count:count], nil
}

// RejectionPlacer draws uniform random coordinates and keeps those that are
// neither mines yet nor the excluded cell. Suited to sparse boards.
type RejectionPlacer struct {
	rng *rand.Rand
}

// NewRejectionPlacer creates a rejection-sampling placer.
// A nil source uses a randomly seeded PCG.
func NewRejectionPlacer(rng *rand.Rand) *RejectionPlacer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RejectionPlacer{rng: rng}
}

// Place draws random cells, skipping repeats and the excluded cell
func (p *RejectionPlacer) Place(rows, cols, count int, exclude Position) ([]Position, error) {
	if count > rows*cols-1 {
		return nil, fmt.Errorf("%w: %d mines do not fit in %d free cells", ErrPlacement, count, rows*cols-1)
	}

	taken := make(map[Position]bool, count)
	result := make([]Position, 0, count)
	for len(result) < count {
		pos := Position{Row: p.rng.IntN(rows), Col: p.rng.IntN(cols)}
		if pos == exclude || taken[pos] {
			continue
		}
		taken[pos] = true
		result = append(result, pos)
	}
	return result, nil
}

// FixedPlacer places mines at predetermined positions. It is used for
// replays and for building exact boards in tests.
type FixedPlacer []Position

// Place returns the fixed positions after checking them against the board
func (p FixedPlacer) Place(rows, cols, count int, exclude Position) ([]Position, error) {
	if len(p) != count {
		return nil, fmt.Errorf("%w: have %d fixed mines, board needs %d", ErrPlacement, len(p), count)
	}
	for _, pos := range p {
		if pos == exclude {
			return nil, fmt.Errorf("%w: fixed mine at (%d,%d) is the first revealed cell", ErrPlacement, pos.Row, pos.Col)
		}
	}
	out := make([]Position, len(p))
	copy(out, p)
	return out, nil
}

// checkPlacement verifies a placer result against the board constraints
func checkPlacement(b *Board, mines []Position, exclude Position) error {
	if len(mines) != b.mineCount {
		return fmt.Errorf("%w: got %d mines, want %d", ErrPlacement, len(mines), b.mineCount)
	}
	seen := make(map[Position]bool, len(mines))
	for _, p := range mines {
		if !b.InBounds(p.Row, p.Col) {
			return fmt.Errorf("%w: mine (%d,%d) outside board", ErrPlacement, p.Row, p.Col)
		}
		if p == exclude {
			return fmt.Errorf("%w: mine placed on first revealed cell (%d,%d)", ErrPlacement, p.Row, p.Col)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate mine at (%d,%d)", ErrPlacement, p.Row, p.Col)
		}
		seen[p] = true
	}
	return nil
}
