package engine

import "sync"

// Ship occupies a contiguous run of cells on exactly one board.
type Ship struct {
	id          int
	shipType    ShipType
	orientation Orientation
	cells       []Position
	board       *Board
}

// ID returns the ship identifier, unique within its board.
func (s *Ship) ID() int { return s.id }

// Type returns the ship type.
func (s *Ship) Type() ShipType { return s.shipType }

// Orientation returns the current orientation.
func (s *Ship) Orientation() Orientation {
	if s.board == nil {
		return s.orientation
	}
	s.board.mu.RLock()
	defer s.board.mu.RUnlock()
	return s.orientation
}

// Positions returns a copy of the cells the ship occupies, in order.
func (s *Ship) Positions() []Position {
	if s.board == nil {
		return append([]Position(nil), s.cells...)
	}
	s.board.mu.RLock()
	defer s.board.mu.RUnlock()
	return append([]Position(nil), s.cells...)
}

// Sunk reports whether every occupied cell has been hit. It reads live cell
// state on every call.
func (s *Ship) Sunk() bool {
	if s.board == nil {
		return false
	}
	s.board.mu.RLock()
	defer s.board.mu.RUnlock()
	return s.board.sunkLocked(s)
}

// Fleet is the collection of ships belonging to one side.
type Fleet struct {
	mu    sync.RWMutex
	ships []*Ship
}

// NewFleet creates an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{}
}

// Add appends a ship. No duplicate check is made.
func (f *Fleet) Add(ship *Ship) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ships = append(f.ships, ship)
}

// Ships returns a copy of the fleet's ships.
func (f *Fleet) Ships() []*Ship {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*Ship(nil), f.ships...)
}

// Len returns the number of ships in the fleet.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ships)
}

// Clear empties the fleet.
func (f *Fleet) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ships = nil
}

// IsComplete reports whether the fleet matches FleetComposition exactly.
func (f *Fleet) IsComplete() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	counts := make(map[ShipType]int)
	for _, ship := range f.ships {
		counts[ship.shipType]++
	}
	if len(counts) != len(FleetComposition) {
		return false
	}
	for shipType, want := range FleetComposition {
		if counts[shipType] != want {
			return false
		}
	}
	return true
}

// AllSunk reports whether every ship is sunk. An empty fleet is never sunk.
func (f *Fleet) AllSunk() bool {
	ships := f.Ships()
	if len(ships) == 0 {
		return false
	}
	for _, ship := range ships {
		if !ship.Sunk() {
			return false
		}
	}
	return true
}

// SunkCount returns how many ships in the fleet are sunk.
func (f *Fleet) SunkCount() int {
	count := 0
	for _, ship := range f.Ships() {
		if ship.Sunk() {
			count++
		}
	}
	return count
}
