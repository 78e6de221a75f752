package strategy

import "github.com/wricardo/mcp-training/navalbattle/game/engine"

// Random fires at a uniformly random cell that has not been fired upon.
type Random struct {
	NopFeedback
	rnd engine.Rand
}

// NewRandom creates a Random strategy.
func NewRandom(rnd engine.Rand) *Random {
	return &Random{rnd: rnd}
}

func (r *Random) Name() string { return "random" }

// SelectTarget picks among empty and ship cells alike, so it reveals nothing
// about ship locations.
func (r *Random) SelectTarget(board *engine.Board) (engine.Position, bool) {
	return pick(r.rnd, board.Unresolved())
}
