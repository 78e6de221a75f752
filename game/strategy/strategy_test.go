package strategy

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// resolveAllBut fires at every cell except the given ones.
func resolveAllBut(t *testing.T, board *engine.Board, keep ...engine.Position) {
	t.Helper()
	skip := make(map[engine.Position]bool)
	for _, p := range keep {
		skip[p] = true
	}
	for r := 0; r < engine.BoardSize; r++ {
		for c := 0; c < engine.BoardSize; c++ {
			if skip[engine.Position{Row: r, Col: c}] {
				continue
			}
			_, err := board.Shoot(r, c)
			require.NoError(t, err)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, newRand(1))
			require.NoError(t, err)
			assert.Equal(t, name, s.Name())
		})
	}

	_, err := New("psychic", nil)
	require.ErrorIs(t, err, ErrUnknownStrategy)

	s, err := New("random", nil)
	require.NoError(t, err)
	_, ok := s.SelectTarget(engine.NewBoard())
	assert.True(t, ok)
}

func TestStrategies_OnlyPickUnresolvedCells(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			// given
			board, fleet := engine.NewBoard(), engine.NewFleet()
			require.NoError(t, engine.PlaceFleetRandomly(board, fleet, newRand(3), 0))
			s, err := New(name, newRand(9))
			require.NoError(t, err)

			// when every cell is fired upon through the strategy
			for shot := 0; shot < engine.BoardSize*engine.BoardSize; shot++ {
				p, ok := s.SelectTarget(board)
				require.True(t, ok, "shot %d", shot)
				require.False(t, board.State(p).Resolved(), "shot %d at %s", shot, p)

				outcome, err := board.Shoot(p.Row, p.Col)
				require.NoError(t, err)
				s.OnResult(p, outcome)
			}

			// then
			assert.True(t, fleet.AllSunk())
			_, ok := s.SelectTarget(board)
			assert.False(t, ok)
		})
	}
}

func TestRandom_LastCell(t *testing.T) {
	board := engine.NewBoard()
	last := engine.Position{Row: 7, Col: 2}
	resolveAllBut(t, board, last)

	p, ok := NewRandom(newRand(1)).SelectTarget(board)
	require.True(t, ok)
	assert.Equal(t, last, p)
}

func TestRandom_CoversBoard(t *testing.T) {
	board := engine.NewBoard()
	r := NewRandom(newRand(5))

	seen := make(map[engine.Position]bool)
	for i := 0; i < 5000; i++ {
		p, ok := r.SelectTarget(board)
		require.True(t, ok)
		seen[p] = true
	}
	assert.Len(t, seen, engine.BoardSize*engine.BoardSize)
}

func TestHuntTarget_FollowsHits(t *testing.T) {
	board := engine.NewBoard()
	ship, err := board.Place(4, 4, engine.Horizontal, engine.Submarine)
	require.NoError(t, err)

	h := NewHuntTarget(newRand(1))
	outcome, err := board.Shoot(4, 5)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeHit, outcome)
	h.OnResult(engine.Position{Row: 4, Col: 5}, outcome)

	assert.ElementsMatch(t, engine.Neighbors(engine.Position{Row: 4, Col: 5}), h.Pending())

	// Follow-up shots stay next to known hits until the ship sinks
	for !ship.Sunk() {
		p, ok := h.SelectTarget(board)
		require.True(t, ok)
		assert.True(t, p.Row >= 3 && p.Row <= 5 && p.Col >= 3 && p.Col <= 7, "unexpected target %s", p)

		outcome, err := board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
		h.OnResult(p, outcome)
	}
	assert.Empty(t, h.Pending())
}

func TestHuntTarget_ResumesOnLeftoverHits(t *testing.T) {
	board := engine.NewBoard()
	_, err := board.Place(0, 0, engine.Horizontal, engine.Frigate)
	require.NoError(t, err)
	_, err = board.Place(1, 0, engine.Horizontal, engine.Destroyer)
	require.NoError(t, err)

	// Hit the destroyer, then sink the frigate, which clears the queue
	h := NewHuntTarget(newRand(1))
	for _, p := range []engine.Position{{Row: 1, Col: 0}, {Row: 0, Col: 0}} {
		outcome, err := board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
		h.OnResult(p, outcome)
	}
	require.Empty(t, h.Pending())

	p, ok := h.SelectTarget(board)
	require.True(t, ok)
	assert.Contains(t, []engine.Position{{Row: 2, Col: 0}, {Row: 1, Col: 1}}, p)
}

func TestHuntTarget_HuntsOnParity(t *testing.T) {
	board := engine.NewBoard()
	h := NewHuntTarget(newRand(2))

	for i := 0; i < 30; i++ {
		p, ok := h.SelectTarget(board)
		require.True(t, ok)
		assert.Equal(t, 0, (p.Row+p.Col)%2)
		_, err := board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
	}
}

func TestDensity_PrefersCentreOnEmptyBoard(t *testing.T) {
	board := engine.NewBoard()
	d := NewDensity(newRand(4))

	for i := 0; i < 20; i++ {
		p, ok := d.SelectTarget(board)
		require.True(t, ok)
		assert.True(t, p.Row >= 3 && p.Row <= 6 && p.Col >= 3 && p.Col <= 6, "unexpected target %s", p)
	}
}

func TestDensity_TargetsAroundHit(t *testing.T) {
	board := engine.NewBoard()
	_, err := board.Place(0, 0, engine.Horizontal, engine.Carrier)
	require.NoError(t, err)
	_, err = board.Shoot(0, 1)
	require.NoError(t, err)

	p, ok := NewDensity(newRand(1)).SelectTarget(board)
	require.True(t, ok)
	assert.Contains(t, engine.Neighbors(engine.Position{Row: 0, Col: 1}), p)
}

func TestDensity_SkipsCellsNoShipCanCover(t *testing.T) {
	board := engine.NewBoard()
	// Isolate (0,0) with misses; only a frigate could still be there
	for _, p := range []engine.Position{{Row: 0, Col: 1}, {Row: 1, Col: 0}} {
		_, err := board.Shoot(p.Row, p.Col)
		require.NoError(t, err)
	}

	scores := Scores(board.Grid())
	assert.Equal(t, 4, scores[0][0])
	assert.Zero(t, scores[0][1])
}

func TestAfloat_RemovesSunkShips(t *testing.T) {
	board := engine.NewBoard()
	_, err := board.Place(0, 0, engine.Horizontal, engine.Destroyer)
	require.NoError(t, err)
	_, err = board.Shoot(0, 0)
	require.NoError(t, err)
	_, err = board.Shoot(0, 1)
	require.NoError(t, err)

	remaining := afloat(board.Grid())
	assert.Equal(t, 2, remaining[engine.Destroyer])
	assert.Equal(t, 1, remaining[engine.Carrier])
	assert.Equal(t, 4, remaining[engine.Frigate])
}
