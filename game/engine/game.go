package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Side is one participant: a display name, a board and a fleet.
type Side struct {
	Name  string
	Board *Board
	Fleet *Fleet
}

// NewSide creates a side with an empty board and fleet.
func NewSide(name string) (*Side, error) {
	return NewSideWith(name, NewBoard(), NewFleet())
}

// NewSideWith creates a side around an existing board and fleet.
func NewSideWith(name string, board *Board, fleet *Fleet) (*Side, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrBlankName
	}
	if board == nil || fleet == nil {
		return nil, fmt.Errorf("side %q: board and fleet are required", name)
	}
	return &Side{Name: name, Board: board, Fleet: fleet}, nil
}

// Game holds both sides and the turn state. Every read-then-mutate path that
// depends on the turn runs under mu.
type Game struct {
	mu       sync.Mutex
	player   *Side
	opponent *Side
	turn     Turn
	history  []AttackRecord
	seq      int
}

// NewGame starts a match on the player's turn.
func NewGame(player, opponent *Side) *Game {
	return &Game{
		player:   player,
		opponent: opponent,
		turn:     PlayerTurn,
		history:  []AttackRecord{},
	}
}

// Player returns the human side.
func (g *Game) Player() *Side { return g.player }

// Opponent returns the automated side.
func (g *Game) Opponent() *Side { return g.opponent }

// Turn returns whose turn it is.
func (g *Game) Turn() Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// AttackAsPlayer fires at the opponent's board. A miss passes the turn; a
// hit or sunk keeps it.
func (g *Game) AttackAsPlayer(row, col int) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attackLocked(PlayerTurn, row, col)
}

// AttackAsOpponent fires at the player's board with the same turn rule.
func (g *Game) AttackAsOpponent(row, col int) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attackLocked(OpponentTurn, row, col)
}

func (g *Game) attackLocked(attacker Turn, row, col int) (Outcome, error) {
	if g.turn != attacker {
		return OutcomeMiss, fmt.Errorf("%w: it is the %s's turn", ErrWrongTurn, g.turn)
	}
	if g.matchOver() {
		return OutcomeMiss, ErrMatchOver
	}

	target := g.opponent.Board
	if attacker == OpponentTurn {
		target = g.player.Board
	}

	outcome, err := target.Shoot(row, col)
	if err != nil {
		return outcome, err
	}

	if outcome == OutcomeMiss {
		if attacker == PlayerTurn {
			g.turn = OpponentTurn
		} else {
			g.turn = PlayerTurn
		}
	}

	g.seq++
	g.history = append(g.history, AttackRecord{
		Seq:       g.seq,
		Attacker:  attacker,
		Position:  Position{Row: row, Col: col},
		Outcome:   outcome,
		Timestamp: time.Now(),
	})
	if len(g.history) > MaxHistoryEntries {
		g.history = g.history[len(g.history)-MaxHistoryEntries:]
	}

	return outcome, nil
}

// PlayerWon reports whether the opponent's fleet is sunk.
func (g *Game) PlayerWon() bool {
	return g.opponent.Fleet.AllSunk()
}

// OpponentWon reports whether the player's fleet is sunk.
func (g *Game) OpponentWon() bool {
	return g.player.Fleet.AllSunk()
}

// MatchOver reports whether either fleet is sunk.
func (g *Game) MatchOver() bool {
	return g.matchOver()
}

func (g *Game) matchOver() bool {
	return g.PlayerWon() || g.OpponentWon()
}

// History returns a copy of the attack history, oldest first.
func (g *Game) History() []AttackRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]AttackRecord(nil), g.history...)
}

// LastAttack returns the most recent attack, or nil before the first shot.
func (g *Game) LastAttack() *AttackRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.history) == 0 {
		return nil
	}
	last := g.history[len(g.history)-1]
	return &last
}

// Tx is the view of a Game available inside WithLock.
type Tx struct {
	g *Game
}

// Turn returns whose turn it is.
func (tx Tx) Turn() Turn { return tx.g.turn }

// PlayerBoard returns the human side's board.
func (tx Tx) PlayerBoard() *Board { return tx.g.player.Board }

// OpponentBoard returns the automated side's board.
func (tx Tx) OpponentBoard() *Board { return tx.g.opponent.Board }

// MatchOver reports whether either fleet is sunk.
func (tx Tx) MatchOver() bool { return tx.g.matchOver() }

// AttackAsOpponent is Game.AttackAsOpponent without re-acquiring the lock.
func (tx Tx) AttackAsOpponent(row, col int) (Outcome, error) {
	return tx.g.attackLocked(OpponentTurn, row, col)
}

// AttackAsPlayer is Game.AttackAsPlayer without re-acquiring the lock.
func (tx Tx) AttackAsPlayer(row, col int) (Outcome, error) {
	return tx.g.attackLocked(PlayerTurn, row, col)
}

// WithLock runs fn while holding the game lock, so a turn check and the
// attack that depends on it happen atomically. fn must not call Game methods
// that lock.
func (g *Game) WithLock(fn func(tx Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(Tx{g: g})
}
