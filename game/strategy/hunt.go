package strategy

import "github.com/wricardo/mcp-training/navalbattle/game/engine"

// HuntTarget hunts on a checkerboard pattern until it scores a hit, then
// works through the hit's orthogonal neighbours until the ship sinks.
type HuntTarget struct {
	rnd     engine.Rand
	targets []engine.Position
}

// NewHuntTarget creates a HuntTarget strategy.
func NewHuntTarget(rnd engine.Rand) *HuntTarget {
	return &HuntTarget{rnd: rnd}
}

func (h *HuntTarget) Name() string { return "hunt" }

func (h *HuntTarget) SelectTarget(board *engine.Board) (engine.Position, bool) {
	for len(h.targets) > 0 {
		next := h.targets[0]
		h.targets = h.targets[1:]
		if !board.State(next).Resolved() {
			return next, true
		}
	}

	// A sinking clears the queue, but hits on an adjacent ship may remain
	for _, row := range board.Grid() {
		for _, cell := range row {
			if cell.State != engine.Hit {
				continue
			}
			for _, n := range engine.Neighbors(engine.Position{Row: cell.Row, Col: cell.Col}) {
				if !board.State(n).Resolved() {
					return n, true
				}
			}
		}
	}

	unresolved := board.Unresolved()
	// Every ship except frigates covers at least one cell of each colour
	parity := make([]engine.Position, 0, len(unresolved)/2+1)
	for _, p := range unresolved {
		if (p.Row+p.Col)%2 == 0 {
			parity = append(parity, p)
		}
	}
	if len(parity) > 0 {
		return pick(h.rnd, parity)
	}
	return pick(h.rnd, unresolved)
}

func (h *HuntTarget) OnResult(p engine.Position, outcome engine.Outcome) {
	switch outcome {
	case engine.OutcomeHit:
		h.targets = append(h.targets, engine.Neighbors(p)...)
	case engine.OutcomeSunk:
		h.targets = h.targets[:0]
	}
}

// Pending returns the queued follow-up targets.
func (h *HuntTarget) Pending() []engine.Position {
	return append([]engine.Position(nil), h.targets...)
}
