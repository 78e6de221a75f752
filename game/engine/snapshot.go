package engine

import (
	"fmt"
	"sort"
)

// ShipRecord is the persisted metadata of a ship. Its cells are not stored;
// they are re-derived from the grid on restore.
type ShipRecord struct {
	ID          int         `json:"id"`
	Type        ShipType    `json:"type"`
	Orientation Orientation `json:"orientation"`
}

// BoardSnapshot is the persisted form of a board.
type BoardSnapshot struct {
	Cells [][]Cell     `json:"cells"`
	Ships []ShipRecord `json:"ships"`
}

// SideSnapshot is the persisted form of a side.
type SideSnapshot struct {
	Name  string        `json:"name"`
	Board BoardSnapshot `json:"board"`
}

// GameSnapshot is the in-memory contract a persistence layer must round-trip.
type GameSnapshot struct {
	Player   SideSnapshot   `json:"player"`
	Opponent SideSnapshot   `json:"opponent"`
	Turn     Turn           `json:"turn"`
	History  []AttackRecord `json:"history"`
	Seq      int            `json:"seq"`
}

// Snapshot captures the board's grid and ship metadata.
func (b *Board) Snapshot() BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cells := make([][]Cell, BoardSize)
	for r := 0; r < BoardSize; r++ {
		cells[r] = make([]Cell, BoardSize)
		copy(cells[r], b.cells[r][:])
	}

	ships := make([]ShipRecord, 0, len(b.ships))
	for _, ship := range b.ships {
		ships = append(ships, ShipRecord{ID: ship.id, Type: ship.shipType, Orientation: ship.orientation})
	}
	sort.Slice(ships, func(i, j int) bool { return ships[i].ID < ships[j].ID })

	return BoardSnapshot{Cells: cells, Ships: ships}
}

// RestoreBoard rebuilds a board and its fleet from a snapshot. Every ship's
// cell list is rebuilt by scanning the grid and grouping cells on ship id;
// the result must agree with the ship metadata or ErrCorruptSnapshot is
// returned.
func RestoreBoard(s BoardSnapshot) (*Board, *Fleet, error) {
	if len(s.Cells) != BoardSize {
		return nil, nil, fmt.Errorf("%w: expected %d rows, got %d", ErrCorruptSnapshot, BoardSize, len(s.Cells))
	}

	meta := make(map[int]ShipRecord, len(s.Ships))
	for _, rec := range s.Ships {
		if rec.ID <= 0 {
			return nil, nil, fmt.Errorf("%w: invalid ship id %d", ErrCorruptSnapshot, rec.ID)
		}
		if _, dup := meta[rec.ID]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate ship id %d", ErrCorruptSnapshot, rec.ID)
		}
		if rec.Type.Length() == 0 {
			return nil, nil, fmt.Errorf("%w: ship %d has unknown type", ErrCorruptSnapshot, rec.ID)
		}
		meta[rec.ID] = rec
	}

	b := NewBoard()
	groups := make(map[int][]Position)
	for r := 0; r < BoardSize; r++ {
		if len(s.Cells[r]) != BoardSize {
			return nil, nil, fmt.Errorf("%w: row %d has %d cells", ErrCorruptSnapshot, r, len(s.Cells[r]))
		}
		for c := 0; c < BoardSize; c++ {
			cell := s.Cells[r][c]
			cell.Row, cell.Col = r, c

			if cell.HasShip() {
				switch cell.State {
				case ShipPresent, Hit, Sunk:
				default:
					return nil, nil, fmt.Errorf("%w: cell %s has ship %d but state %s", ErrCorruptSnapshot, Position{r, c}, cell.ShipID, cell.State)
				}
				groups[cell.ShipID] = append(groups[cell.ShipID], Position{Row: r, Col: c})
			} else if cell.State != Empty && cell.State != Miss {
				return nil, nil, fmt.Errorf("%w: cell %s has state %s but no ship", ErrCorruptSnapshot, Position{r, c}, cell.State)
			}

			if cell.State.Resolved() {
				b.shots++
			}
			b.cells[r][c] = cell
		}
	}

	for id := range groups {
		if _, ok := meta[id]; !ok {
			return nil, nil, fmt.Errorf("%w: cells reference unknown ship %d", ErrCorruptSnapshot, id)
		}
	}

	fleet := NewFleet()
	for _, rec := range s.Ships {
		positions := groups[rec.ID]
		if err := checkShipCells(b, rec, positions); err != nil {
			return nil, nil, err
		}

		ship := &Ship{
			id:          rec.ID,
			shipType:    rec.Type,
			orientation: rec.Orientation,
			cells:       positions,
			board:       b,
		}
		b.ships[rec.ID] = ship
		if rec.ID >= b.nextID {
			b.nextID = rec.ID + 1
		}
	}
	for _, ship := range b.Ships() {
		fleet.Add(ship)
	}

	return b, fleet, nil
}

// checkShipCells verifies a regrouped ship: right length, one contiguous run
// along its orientation, and either all or none of its cells sunk.
func checkShipCells(b *Board, rec ShipRecord, positions []Position) error {
	length := rec.Type.Length()
	if len(positions) != length {
		return fmt.Errorf("%w: ship %d (%s) has %d cells, want %d", ErrCorruptSnapshot, rec.ID, rec.Type, len(positions), length)
	}

	first := positions[0]
	want := span(first.Row, first.Col, rec.Orientation, length)
	sunk, struck := 0, 0
	for i, p := range positions {
		if p != want[i] {
			return fmt.Errorf("%w: ship %d cells are not a contiguous %s run", ErrCorruptSnapshot, rec.ID, rec.Orientation)
		}
		switch b.cells[p.Row][p.Col].State {
		case Sunk:
			sunk++
			struck++
		case Hit:
			struck++
		}
	}
	if sunk != 0 && sunk != length {
		return fmt.Errorf("%w: ship %d is partially sunk", ErrCorruptSnapshot, rec.ID)
	}
	// A ship hit on every cell must have been marked sunk.
	if struck == length && sunk != length {
		return fmt.Errorf("%w: ship %d is hit on every cell but not sunk", ErrCorruptSnapshot, rec.ID)
	}
	return nil
}

// Snapshot captures the full match state.
func (g *Game) Snapshot() GameSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return GameSnapshot{
		Player:   SideSnapshot{Name: g.player.Name, Board: g.player.Board.Snapshot()},
		Opponent: SideSnapshot{Name: g.opponent.Name, Board: g.opponent.Board.Snapshot()},
		Turn:     g.turn,
		History:  append([]AttackRecord{}, g.history...),
		Seq:      g.seq,
	}
}

// Restore rebuilds a Game from a snapshot, re-deriving every ship's cells.
func Restore(s GameSnapshot) (*Game, error) {
	player, err := restoreSide(s.Player)
	if err != nil {
		return nil, fmt.Errorf("player side: %w", err)
	}
	opponent, err := restoreSide(s.Opponent)
	if err != nil {
		return nil, fmt.Errorf("opponent side: %w", err)
	}
	if s.Turn != PlayerTurn && s.Turn != OpponentTurn {
		return nil, fmt.Errorf("%w: invalid turn %d", ErrCorruptSnapshot, int(s.Turn))
	}

	g := NewGame(player, opponent)
	g.turn = s.Turn
	if s.History != nil {
		g.history = append([]AttackRecord{}, s.History...)
	}
	g.seq = s.Seq
	if n := len(g.history); n > 0 && g.history[n-1].Seq > g.seq {
		g.seq = g.history[n-1].Seq
	}
	return g, nil
}

func restoreSide(s SideSnapshot) (*Side, error) {
	board, fleet, err := RestoreBoard(s.Board)
	if err != nil {
		return nil, err
	}
	side, err := NewSideWith(s.Name, board, fleet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return side, nil
}
