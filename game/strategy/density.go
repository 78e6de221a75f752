package strategy

import "github.com/wricardo/mcp-training/navalbattle/game/engine"

// targetWeight boosts placements that run through a hit which has not yet
// sunk its ship.
const targetWeight = 20

// Density counts, for every unresolved cell, how many placements of the
// ships still afloat could cover it, and fires at the highest count. Ties
// are broken at random.
type Density struct {
	NopFeedback
	rnd engine.Rand
}

// NewDensity creates a Density strategy.
func NewDensity(rnd engine.Rand) *Density {
	return &Density{rnd: rnd}
}

func (d *Density) Name() string { return "density" }

func (d *Density) SelectTarget(board *engine.Board) (engine.Position, bool) {
	grid := board.Grid()
	scores := Scores(grid)

	best := 0
	var candidates []engine.Position
	for r := range scores {
		for c, score := range scores[r] {
			if grid[r][c].State.Resolved() || score == 0 {
				continue
			}
			switch {
			case score > best:
				best = score
				candidates = append(candidates[:0], engine.Position{Row: r, Col: c})
			case score == best:
				candidates = append(candidates, engine.Position{Row: r, Col: c})
			}
		}
	}

	if len(candidates) == 0 {
		return pick(d.rnd, board.Unresolved())
	}
	return pick(d.rnd, candidates)
}

// Scores returns the placement count grid for the visible state of grid.
// Only fired-upon cells and revealed sunk ships are taken into account.
func Scores(grid [][]engine.Cell) [engine.BoardSize][engine.BoardSize]int {
	var scores [engine.BoardSize][engine.BoardSize]int

	for shipType, count := range afloat(grid) {
		length := shipType.Length()
		orientations := []engine.Orientation{engine.Horizontal, engine.Vertical}
		if length == 1 {
			orientations = orientations[:1]
		}

		for _, o := range orientations {
			for r := 0; r < engine.BoardSize; r++ {
				for c := 0; c < engine.BoardSize; c++ {
					cells, hits, ok := placement(grid, r, c, o, length)
					if !ok {
						continue
					}
					weight := count * (1 + targetWeight*hits)
					for _, p := range cells {
						scores[p.Row][p.Col] += weight
					}
				}
			}
		}
	}
	return scores
}

// placement reports whether a ship could still lie on the given cells and
// how many unsunk hits it would cover.
func placement(grid [][]engine.Cell, row, col int, o engine.Orientation, length int) ([]engine.Position, int, bool) {
	cells := make([]engine.Position, 0, length)
	hits := 0
	for i := 0; i < length; i++ {
		p := engine.Position{Row: row, Col: col}
		if o == engine.Horizontal {
			p.Col += i
		} else {
			p.Row += i
		}
		if !engine.InBounds(p.Row, p.Col) {
			return nil, 0, false
		}
		switch grid[p.Row][p.Col].State {
		case engine.Miss, engine.Sunk:
			return nil, 0, false
		case engine.Hit:
			hits++
		}
		cells = append(cells, p)
	}
	return cells, hits, true
}

// afloat derives the ships not yet sunk from the composition and the sunk
// ships revealed on the grid.
func afloat(grid [][]engine.Cell) map[engine.ShipType]int {
	remaining := make(map[engine.ShipType]int, len(engine.FleetComposition))
	for t, n := range engine.FleetComposition {
		remaining[t] = n
	}

	sunkCells := make(map[int]int)
	for _, row := range grid {
		for _, cell := range row {
			if cell.State == engine.Sunk {
				sunkCells[cell.ShipID]++
			}
		}
	}

	for _, length := range sunkCells {
		for _, t := range engine.ShipTypes {
			if t.Length() == length && remaining[t] > 0 {
				remaining[t]--
				break
			}
		}
	}
	return remaining
}
