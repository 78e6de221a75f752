package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipType_Length(t *testing.T) {
	assert.Equal(t, 4, Carrier.Length())
	assert.Equal(t, 3, Submarine.Length())
	assert.Equal(t, 2, Destroyer.Length())
	assert.Equal(t, 1, Frigate.Length())
	assert.Equal(t, 0, ShipType(42).Length())
}

func TestShip_SunkIsMonotonic(t *testing.T) {
	board := NewBoard()
	ship, err := board.Place(3, 3, Vertical, Submarine)
	require.NoError(t, err)

	positions := ship.Positions()
	for i, p := range positions {
		assert.False(t, ship.Sunk(), "sunk before shot %d", i)
		_, err := board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
	}
	assert.True(t, ship.Sunk())

	// Further shots elsewhere never un-sink it
	for _, p := range []Position{{0, 0}, {9, 9}, {2, 3}} {
		_, err := board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
		assert.True(t, ship.Sunk())
	}
}

func TestFleet_AllSunkEmptyFleet(t *testing.T) {
	assert.False(t, NewFleet().AllSunk())
}

func TestFleet_AllSunk(t *testing.T) {
	board := NewBoard()
	fleet := NewFleet()
	a, err := board.Place(0, 0, Horizontal, Frigate)
	require.NoError(t, err)
	b, err := board.Place(5, 5, Horizontal, Destroyer)
	require.NoError(t, err)
	fleet.Add(a)
	fleet.Add(b)

	_, err = board.Shoot(0, 0)
	require.NoError(t, err)
	assert.False(t, fleet.AllSunk())
	assert.Equal(t, 1, fleet.SunkCount())

	_, err = board.Shoot(5, 5)
	require.NoError(t, err)
	_, err = board.Shoot(5, 6)
	require.NoError(t, err)
	assert.True(t, fleet.AllSunk())
	assert.Equal(t, 2, fleet.SunkCount())
}

func TestFleet_IsComplete(t *testing.T) {
	t.Run("Default formation is complete", func(t *testing.T) {
		board, fleet := NewBoard(), NewFleet()
		require.NoError(t, PlaceDefaultFormation(board, fleet))
		assert.True(t, fleet.IsComplete())
		assert.Equal(t, 10, fleet.Len())
	})

	t.Run("Missing one frigate", func(t *testing.T) {
		board, fleet := NewBoard(), NewFleet()
		require.NoError(t, PlaceFormation(board, fleet, DefaultFormation[:len(DefaultFormation)-1]))
		assert.False(t, fleet.IsComplete())
	})

	t.Run("Extra frigate", func(t *testing.T) {
		board, fleet := NewBoard(), NewFleet()
		require.NoError(t, PlaceDefaultFormation(board, fleet))
		extra, err := board.Place(9, 9, Horizontal, Frigate)
		require.NoError(t, err)
		fleet.Add(extra)
		assert.False(t, fleet.IsComplete())
	})

	t.Run("Empty fleet", func(t *testing.T) {
		assert.False(t, NewFleet().IsComplete())
	})
}

func TestFleet_Clear(t *testing.T) {
	board, fleet := NewBoard(), NewFleet()
	require.NoError(t, PlaceDefaultFormation(board, fleet))

	fleet.Clear()
	assert.Equal(t, 0, fleet.Len())
	assert.Empty(t, fleet.Ships())
}
