package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeighbors(t *testing.T) {
	assert.ElementsMatch(t, []Position{{1, 0}, {0, 1}}, Neighbors(Position{0, 0}))
	assert.ElementsMatch(t, []Position{{8, 9}, {9, 8}}, Neighbors(Position{9, 9}))
	assert.Equal(t, []Position{{4, 5}, {6, 5}, {5, 4}, {5, 6}}, Neighbors(Position{5, 5}))
}

func TestStats(t *testing.T) {
	history := []AttackRecord{
		{Attacker: PlayerTurn, Outcome: OutcomeHit},
		{Attacker: PlayerTurn, Outcome: OutcomeSunk},
		{Attacker: PlayerTurn, Outcome: OutcomeMiss},
		{Attacker: OpponentTurn, Outcome: OutcomeMiss},
	}

	player := Stats(history, PlayerTurn)
	assert.Equal(t, 3, player.Shots)
	assert.Equal(t, 2, player.Hits)
	assert.Equal(t, 1, player.Misses)
	assert.Equal(t, 1, player.Sunk)
	assert.InDelta(t, 2.0/3.0, player.Ratio, 1e-9)

	opponent := Stats(history, OpponentTurn)
	assert.Equal(t, AttackStats{Shots: 1, Misses: 1}, opponent)

	assert.Equal(t, AttackStats{}, Stats(nil, PlayerTurn))
}

func TestCountState(t *testing.T) {
	board := NewBoard()
	_, _ = board.Place(0, 0, Horizontal, Carrier)
	_, _ = board.Shoot(0, 0)
	_, _ = board.Shoot(5, 5)

	grid := board.Grid()
	assert.Equal(t, 3, CountState(grid, ShipPresent))
	assert.Equal(t, 1, CountState(grid, Hit))
	assert.Equal(t, 1, CountState(grid, Miss))
	assert.Equal(t, 95, CountState(grid, Empty))
}
