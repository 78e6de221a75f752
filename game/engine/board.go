package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Board is a square arena of cells owned by one side. Ships reference cells
// by position and cells reference ships by id, so there are no pointer
// cycles between the two.
type Board struct {
	mu     sync.RWMutex
	cells  [BoardSize][BoardSize]Cell
	ships  map[int]*Ship
	nextID int
	shots  int
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	b := &Board{
		ships:  make(map[int]*Ship),
		nextID: 1,
	}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			b.cells[r][c] = Cell{Row: r, Col: c, State: Empty}
		}
	}
	return b
}

// InBounds reports whether (row, col) lies on the board.
func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// span returns the positions a ship of the given length would occupy.
func span(row, col int, orientation Orientation, length int) []Position {
	positions := make([]Position, 0, length)
	for i := 0; i < length; i++ {
		if orientation == Horizontal {
			positions = append(positions, Position{Row: row, Col: col + i})
		} else {
			positions = append(positions, Position{Row: row + i, Col: col})
		}
	}
	return positions
}

// CanPlace reports whether a ship of shipType fits at (row, col) with the
// given orientation without leaving the board or overlapping another ship.
func (b *Board) CanPlace(row, col int, orientation Orientation, shipType ShipType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fitsLocked(span(row, col, orientation, shipType.Length()), 0)
}

// fitsLocked checks bounds and overlap, treating cells of ship ignoreID as free.
func (b *Board) fitsLocked(positions []Position, ignoreID int) bool {
	if len(positions) == 0 {
		return false
	}
	for _, p := range positions {
		if !InBounds(p.Row, p.Col) {
			return false
		}
		cell := b.cells[p.Row][p.Col]
		if cell.HasShip() && cell.ShipID != ignoreID {
			return false
		}
	}
	return true
}

// Place creates a ship at (row, col) and links it to its cells. Callers must
// check CanPlace first; a failing precondition is rejected with
// ErrInvalidPlacement and leaves the board untouched.
func (b *Board) Place(row, col int, orientation Orientation, shipType ShipType) (*Ship, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := span(row, col, orientation, shipType.Length())
	if !b.fitsLocked(positions, 0) {
		return nil, fmt.Errorf("%w: %s at %s %s", ErrInvalidPlacement, shipType, Position{Row: row, Col: col}, orientation)
	}

	ship := &Ship{
		id:          b.nextID,
		shipType:    shipType,
		orientation: orientation,
		board:       b,
	}
	b.nextID++
	b.occupyLocked(ship, positions)
	b.ships[ship.id] = ship
	return ship, nil
}

func (b *Board) occupyLocked(ship *Ship, positions []Position) {
	ship.cells = positions
	for _, p := range positions {
		b.cells[p.Row][p.Col].State = ShipPresent
		b.cells[p.Row][p.Col].ShipID = ship.id
	}
}

func (b *Board) vacateLocked(ship *Ship) {
	for _, p := range ship.cells {
		b.cells[p.Row][p.Col].State = Empty
		b.cells[p.Row][p.Col].ShipID = 0
	}
	ship.cells = nil
}

// Shoot fires at (row, col). Re-firing on a resolved cell fails with
// ErrAlreadyAttacked. When the shot completes a ship every cell of that ship
// moves to Sunk and the outcome is OutcomeSunk.
func (b *Board) Shoot(row, col int) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := Position{Row: row, Col: col}
	if !InBounds(row, col) {
		return OutcomeMiss, fmt.Errorf("%w: %s", ErrOutOfBounds, pos)
	}

	cell := &b.cells[row][col]
	if cell.State.Resolved() {
		return OutcomeMiss, fmt.Errorf("%w: %s", ErrAlreadyAttacked, pos)
	}
	b.shots++

	if !cell.HasShip() {
		cell.State = Miss
		return OutcomeMiss, nil
	}

	cell.State = Hit
	ship, ok := b.ships[cell.ShipID]
	if !ok || !b.sunkLocked(ship) {
		return OutcomeHit, nil
	}

	for _, p := range ship.cells {
		b.cells[p.Row][p.Col].State = Sunk
	}
	return OutcomeSunk, nil
}

func (b *Board) sunkLocked(ship *Ship) bool {
	if len(ship.cells) == 0 {
		return false
	}
	for _, p := range ship.cells {
		state := b.cells[p.Row][p.Col].State
		if state != Hit && state != Sunk {
			return false
		}
	}
	return true
}

// MoveShip shifts a ship by the given row/column delta. The ship's own cells
// do not count as obstacles. Only allowed before the first shot.
func (b *Board) MoveShip(id, dRow, dCol int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shots > 0 {
		return ErrPlacementLocked
	}
	ship, ok := b.ships[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrShipNotFound, id)
	}
	if dRow == 0 && dCol == 0 {
		return fmt.Errorf("%w: zero move", ErrInvalidPlacement)
	}

	moved := make([]Position, len(ship.cells))
	for i, p := range ship.cells {
		moved[i] = Position{Row: p.Row + dRow, Col: p.Col + dCol}
	}
	if !b.fitsLocked(moved, ship.id) {
		return fmt.Errorf("%w: cannot move %s %d by (%d, %d)", ErrInvalidPlacement, ship.shipType, id, dRow, dCol)
	}

	b.vacateLocked(ship)
	b.occupyLocked(ship, moved)
	return nil
}

// RotateShip flips a ship's orientation, pivoting on its first cell.
// Only allowed before the first shot.
func (b *Board) RotateShip(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shots > 0 {
		return ErrPlacementLocked
	}
	ship, ok := b.ships[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrShipNotFound, id)
	}
	if len(ship.cells) == 0 {
		return fmt.Errorf("%w: ship %d has no cells", ErrInvalidPlacement, id)
	}

	pivot := ship.cells[0]
	next := ship.orientation.Flip()
	rotated := span(pivot.Row, pivot.Col, next, ship.shipType.Length())
	if !b.fitsLocked(rotated, ship.id) {
		return fmt.Errorf("%w: cannot rotate %s %d", ErrInvalidPlacement, ship.shipType, id)
	}

	b.vacateLocked(ship)
	ship.orientation = next
	b.occupyLocked(ship, rotated)
	return nil
}

// Clear removes every ship. Only allowed before the first shot.
func (b *Board) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shots > 0 {
		return ErrPlacementLocked
	}
	for _, ship := range b.ships {
		b.vacateLocked(ship)
	}
	b.ships = make(map[int]*Ship)
	b.nextID = 1
	return nil
}

// Cell returns a copy of the cell at (row, col).
func (b *Board) Cell(row, col int) (Cell, error) {
	if !InBounds(row, col) {
		return Cell{}, fmt.Errorf("%w: %s", ErrOutOfBounds, Position{Row: row, Col: col})
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cells[row][col], nil
}

// State returns the state of the cell at p, or Empty when p is off the board.
func (b *Board) State(p Position) CellState {
	if !InBounds(p.Row, p.Col) {
		return Empty
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cells[p.Row][p.Col].State
}

// Grid returns a row-major copy of all cells.
func (b *Board) Grid() [][]Cell {
	b.mu.RLock()
	defer b.mu.RUnlock()

	grid := make([][]Cell, BoardSize)
	for r := 0; r < BoardSize; r++ {
		grid[r] = make([]Cell, BoardSize)
		copy(grid[r], b.cells[r][:])
	}
	return grid
}

// Ship looks up a ship placed on this board.
func (b *Board) Ship(id int) (*Ship, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ship, ok := b.ships[id]
	return ship, ok
}

// Ships returns the ships on the board ordered by id.
func (b *Board) Ships() []*Ship {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ships := make([]*Ship, 0, len(b.ships))
	for _, ship := range b.ships {
		ships = append(ships, ship)
	}
	sort.Slice(ships, func(i, j int) bool { return ships[i].id < ships[j].id })
	return ships
}

// Unresolved returns every position that has not been fired upon, row-major.
func (b *Board) Unresolved() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var positions []Position
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if !b.cells[r][c].State.Resolved() {
				positions = append(positions, Position{Row: r, Col: c})
			}
		}
	}
	return positions
}

// FirstUnresolved returns the first position, in row-major order, that has
// not been fired upon.
func (b *Board) FirstUnresolved() (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if !b.cells[r][c].State.Resolved() {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// Shots returns the number of resolved shots taken at this board.
func (b *Board) Shots() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shots
}
