package engine

// CountState counts the cells of a grid in the given state
func CountState(grid [][]Cell, state CellState) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.State == state {
				count++
			}
		}
	}
	return count
}

// Neighbors returns the orthogonal neighbours of p that lie on the board,
// in up, down, left, right order.
func Neighbors(p Position) []Position {
	candidates := []Position{
		{Row: p.Row - 1, Col: p.Col},
		{Row: p.Row + 1, Col: p.Col},
		{Row: p.Row, Col: p.Col - 1},
		{Row: p.Row, Col: p.Col + 1},
	}

	neighbors := make([]Position, 0, len(candidates))
	for _, c := range candidates {
		if InBounds(c.Row, c.Col) {
			neighbors = append(neighbors, c)
		}
	}
	return neighbors
}

// AttackStats summarises one side's shots.
type AttackStats struct {
	Shots  int     `json:"shots"`
	Hits   int     `json:"hits"`
	Misses int     `json:"misses"`
	Sunk   int     `json:"sunk"`
	Ratio  float64 `json:"hit_ratio"`
}

// Stats computes attack statistics for attacker from a history. A shot that
// sinks a ship counts as a hit too.
func Stats(history []AttackRecord, attacker Turn) AttackStats {
	var stats AttackStats
	for _, rec := range history {
		if rec.Attacker != attacker {
			continue
		}
		stats.Shots++
		switch rec.Outcome {
		case OutcomeMiss:
			stats.Misses++
		case OutcomeHit:
			stats.Hits++
		case OutcomeSunk:
			stats.Hits++
			stats.Sunk++
		}
	}
	if stats.Shots > 0 {
		stats.Ratio = float64(stats.Hits) / float64(stats.Shots)
	}
	return stats
}
