package engine

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceFleetRandomly(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		board, fleet := NewBoard(), NewFleet()
		rnd := rand.New(rand.NewPCG(seed, seed*7))

		require.NoError(t, PlaceFleetRandomly(board, fleet, rnd, 0))
		assert.True(t, fleet.IsComplete(), "seed %d", seed)
		assert.Equal(t, 20, CountState(board.Grid(), ShipPresent), "seed %d", seed)

		for _, ship := range fleet.Ships() {
			assert.Len(t, ship.Positions(), ship.Type().Length())
		}
	}
}

func TestPlaceFleetRandomly_Deterministic(t *testing.T) {
	a, fa := NewBoard(), NewFleet()
	b, fb := NewBoard(), NewFleet()

	require.NoError(t, PlaceFleetRandomly(a, fa, rand.New(rand.NewPCG(42, 42)), 0))
	require.NoError(t, PlaceFleetRandomly(b, fb, rand.New(rand.NewPCG(42, 42)), 0))

	assert.Equal(t, a.Grid(), b.Grid())
}

func TestPlaceFleetRandomly_Exhausted(t *testing.T) {
	board, fleet := NewBoard(), NewFleet()
	// Fill every row but the last with frigates so no carrier can fit vertically,
	// and leave only three free cells on the last row.
	for r := 0; r < BoardSize-1; r++ {
		for c := 0; c < BoardSize; c++ {
			_, err := board.Place(r, c, Horizontal, Frigate)
			require.NoError(t, err)
		}
	}
	for c := 3; c < BoardSize; c++ {
		_, err := board.Place(BoardSize-1, c, Horizontal, Frigate)
		require.NoError(t, err)
	}

	err := PlaceFleetRandomly(board, fleet, rand.New(rand.NewPCG(1, 1)), 50)
	require.ErrorIs(t, err, ErrPlacementFailed)
	assert.Equal(t, 0, fleet.Len())
}

func TestPlaceFormation_RejectsOverlap(t *testing.T) {
	board, fleet := NewBoard(), NewFleet()

	err := PlaceFormation(board, fleet, []FormationSlot{
		{Submarine, 0, 0, Horizontal},
		{Destroyer, 0, 2, Vertical},
	})
	require.ErrorIs(t, err, ErrInvalidPlacement)
	assert.Equal(t, 1, fleet.Len())
}

func TestDefaultFormation_MatchesComposition(t *testing.T) {
	counts := map[ShipType]int{}
	for _, slot := range DefaultFormation {
		counts[slot.Type]++
	}
	assert.Equal(t, FleetComposition, counts)
}
