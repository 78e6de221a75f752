package engine

import (
	"fmt"
	"strings"
	"time"
)

const (
	// BoardSize is the side length of every board.
	BoardSize = 10

	// MaxPlacementAttempts bounds random placement tries per ship.
	MaxPlacementAttempts = 1000

	// MaxHistoryEntries caps the in-memory attack history kept by a Game.
	// A match ends before both boards are fully shot, so every attack of a
	// match fits; trimming only applies to oversized restored histories.
	MaxHistoryEntries = 2 * BoardSize * BoardSize
)

// CellState is the resolution state of a single board cell.
type CellState int

const (
	Empty CellState = iota
	ShipPresent
	Hit
	Sunk
	Miss
)

var cellStateNames = map[CellState]string{
	Empty:       "empty",
	ShipPresent: "ship",
	Hit:         "hit",
	Sunk:        "sunk",
	Miss:        "miss",
}

// String returns the lowercase state name.
func (s CellState) String() string {
	if name, ok := cellStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CellState(%d)", int(s))
}

// Resolved reports whether the cell has already been fired upon.
func (s CellState) Resolved() bool {
	return s == Hit || s == Sunk || s == Miss
}

// MarshalText encodes the state by name.
func (s CellState) MarshalText() ([]byte, error) {
	name, ok := cellStateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown cell state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a state name.
func (s *CellState) UnmarshalText(text []byte) error {
	for state, name := range cellStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown cell state %q", string(text))
}

// ShipType identifies a ship class and its fixed length.
type ShipType int

const (
	Carrier ShipType = iota
	Submarine
	Destroyer
	Frigate
)

// ShipTypes lists every ship type, longest first.
var ShipTypes = []ShipType{Carrier, Submarine, Destroyer, Frigate}

// FleetComposition is the number of ships of each type in a complete fleet.
var FleetComposition = map[ShipType]int{
	Carrier:   1,
	Submarine: 2,
	Destroyer: 3,
	Frigate:   4,
}

var shipTypeNames = map[ShipType]string{
	Carrier:   "carrier",
	Submarine: "submarine",
	Destroyer: "destroyer",
	Frigate:   "frigate",
}

// Length returns the number of cells a ship of this type occupies.
func (t ShipType) Length() int {
	switch t {
	case Carrier:
		return 4
	case Submarine:
		return 3
	case Destroyer:
		return 2
	case Frigate:
		return 1
	default:
		return 0
	}
}

func (t ShipType) String() string {
	if name, ok := shipTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ShipType(%d)", int(t))
}

// MarshalText encodes the ship type by name.
func (t ShipType) MarshalText() ([]byte, error) {
	name, ok := shipTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown ship type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a ship type name.
func (t *ShipType) UnmarshalText(text []byte) error {
	parsed, err := ParseShipType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseShipType resolves a case-insensitive ship type name.
func ParseShipType(name string) (ShipType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for t, n := range shipTypeNames {
		if n == lower {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown ship type %q", name)
}

// Orientation is the axis a ship extends along from its first cell.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Flip returns the other orientation.
func (o Orientation) Flip() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}

// MarshalText encodes the orientation by name.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an orientation name.
func (o *Orientation) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "horizontal", "h":
		*o = Horizontal
	case "vertical", "v":
		*o = Vertical
	default:
		return fmt.Errorf("unknown orientation %q", string(text))
	}
	return nil
}

// Outcome is the result of a single shot.
type Outcome int

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
	OutcomeSunk
)

var outcomeNames = map[Outcome]string{
	OutcomeMiss: "miss",
	OutcomeHit:  "hit",
	OutcomeSunk: "sunk",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	name, ok := outcomeNames[o]
	if !ok {
		return nil, fmt.Errorf("unknown outcome %d", int(o))
	}
	return []byte(name), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	for outcome, name := range outcomeNames {
		if name == string(text) {
			*o = outcome
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", string(text))
}

// Turn names the side allowed to attack.
type Turn int

const (
	PlayerTurn Turn = iota
	OpponentTurn
)

func (t Turn) String() string {
	if t == OpponentTurn {
		return "opponent"
	}
	return "player"
}

// MarshalText encodes the turn by name.
func (t Turn) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a turn name.
func (t *Turn) UnmarshalText(text []byte) error {
	switch string(text) {
	case "player":
		*t = PlayerTurn
	case "opponent":
		*t = OpponentTurn
	default:
		return fmt.Errorf("unknown turn %q", string(text))
	}
	return nil
}

// Position is a zero-based row/column coordinate.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Col)
}

// Cell is one grid position. ShipID is 0 when no ship occupies it.
type Cell struct {
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	State  CellState `json:"state"`
	ShipID int       `json:"ship_id,omitempty"`
}

// HasShip reports whether a ship occupies the cell.
func (c Cell) HasShip() bool {
	return c.ShipID != 0
}

// AttackRecord is a single resolved shot in the match history.
type AttackRecord struct {
	Seq       int       `json:"seq"`
	Attacker  Turn      `json:"attacker"`
	Position  Position  `json:"position"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}
