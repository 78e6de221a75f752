// Package strategy provides attack target selection policies for the
// automated opponent.
package strategy

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
)

// ErrUnknownStrategy is returned by New for a name it does not recognise.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy chooses the next cell to fire at on a target board.
//
// SelectTarget returns false only when the board has no unresolved cell
// left. OnResult is called with the outcome of every shot the strategy
// selected. Implementations are driven from a single goroutine and need not
// be safe for concurrent use. They must base decisions on the visible state
// of the board only: fired-upon cells and revealed sunk ships.
type Strategy interface {
	Name() string
	SelectTarget(board *engine.Board) (engine.Position, bool)
	OnResult(p engine.Position, outcome engine.Outcome)
}

// NopFeedback can be embedded by strategies that ignore shot outcomes.
type NopFeedback struct{}

// OnResult does nothing.
func (NopFeedback) OnResult(engine.Position, engine.Outcome) {}

// New builds the strategy registered under name. A nil rnd gets a randomly
// seeded source.
func New(name string, rnd engine.Rand) (Strategy, error) {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	switch name {
	case "random":
		return NewRandom(rnd), nil
	case "hunt":
		return NewHuntTarget(rnd), nil
	case "density":
		return NewDensity(rnd), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Names returns the names New accepts.
func Names() []string {
	return append([]string(nil), engine.KnownStrategies...)
}

// pick returns a uniformly random element of candidates.
func pick(rnd engine.Rand, candidates []engine.Position) (engine.Position, bool) {
	if len(candidates) == 0 {
		return engine.Position{}, false
	}
	return candidates[rnd.IntN(len(candidates))], true
}
