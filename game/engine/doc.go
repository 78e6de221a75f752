// Package engine provides the core battle logic for the naval battle game.
//
// The engine package implements the game mechanics including:
//   - Board and ship model with placement validation
//   - Shot resolution (miss, hit, sunk) and the turn state machine
//   - Random and fixed fleet placement
//   - Snapshot and restore for persistence layers
//   - Match configuration loading and validation
//
// Core Types:
//
// A Board owns a fixed 10x10 grid of cells by value. Cells refer to the ship
// occupying them by integer id, and ships keep the positions they occupy, so
// the sunk status of a ship is always derived from the live grid. A Side is a
// named board and fleet, and a Game pairs the human side with the automated
// opponent and tracks whose turn it is.
//
// Usage:
//
//	player, _ := engine.NewSide("Alice")
//	opponent, _ := engine.NewSide("Admiral Random")
//	rnd := rand.New(rand.NewPCG(1, 2))
//	if err := engine.PlaceFleetRandomly(opponent.Board, opponent.Fleet, rnd, 0); err != nil {
//		log.Fatal(err)
//	}
//
//	game := engine.NewGame(player, opponent)
//	outcome, err := game.AttackAsPlayer(3, 4)
//
// Game Rules:
//
// The player moves first. A miss passes the turn to the other side, a hit or
// a sinking keeps it. The match is over when either fleet is entirely sunk.
// Every turn-dependent read-then-mutate path runs under the Game lock; the
// lock order is always Game then Board.
package engine
