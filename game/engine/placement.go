package engine

import "fmt"

// Rand is the random source used for fleet placement and target selection.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// PlaceFleetRandomly fills fleet with a complete composition placed at random
// on board, using only CanPlace and Place. Each ship gets at most attempts
// tries; attempts <= 0 means MaxPlacementAttempts.
func PlaceFleetRandomly(board *Board, fleet *Fleet, rnd Rand, attempts int) error {
	if attempts <= 0 {
		attempts = MaxPlacementAttempts
	}

	for _, shipType := range ShipTypes {
		for n := 0; n < FleetComposition[shipType]; n++ {
			if err := placeOneRandomly(board, fleet, rnd, shipType, attempts); err != nil {
				return err
			}
		}
	}
	return nil
}

func placeOneRandomly(board *Board, fleet *Fleet, rnd Rand, shipType ShipType, attempts int) error {
	length := shipType.Length()
	for i := 0; i < attempts; i++ {
		orientation := Horizontal
		if rnd.IntN(2) == 1 {
			orientation = Vertical
		}

		maxRow, maxCol := BoardSize, BoardSize-length+1
		if orientation == Vertical {
			maxRow, maxCol = BoardSize-length+1, BoardSize
		}
		row, col := rnd.IntN(maxRow), rnd.IntN(maxCol)

		if !board.CanPlace(row, col, orientation, shipType) {
			continue
		}
		ship, err := board.Place(row, col, orientation, shipType)
		if err != nil {
			continue
		}
		fleet.Add(ship)
		return nil
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrPlacementFailed, shipType, attempts)
}

// FormationSlot is one ship in a fixed layout.
type FormationSlot struct {
	Type        ShipType
	Row         int
	Col         int
	Orientation Orientation
}

// DefaultFormation is the layout a human fleet starts in before the player
// rearranges it: one ship per row from the top-left, frigates sharing row 6.
var DefaultFormation = []FormationSlot{
	{Carrier, 0, 0, Horizontal},
	{Submarine, 1, 0, Horizontal},
	{Submarine, 2, 0, Horizontal},
	{Destroyer, 3, 0, Horizontal},
	{Destroyer, 4, 0, Horizontal},
	{Destroyer, 5, 0, Horizontal},
	{Frigate, 6, 0, Horizontal},
	{Frigate, 6, 2, Horizontal},
	{Frigate, 6, 4, Horizontal},
	{Frigate, 6, 6, Horizontal},
}

// PlaceFormation places every slot of a fixed layout. Slots that do not fit
// fail the whole call with ErrInvalidPlacement.
func PlaceFormation(board *Board, fleet *Fleet, slots []FormationSlot) error {
	for _, slot := range slots {
		if !board.CanPlace(slot.Row, slot.Col, slot.Orientation, slot.Type) {
			return fmt.Errorf("%w: %s at %s", ErrInvalidPlacement, slot.Type, Position{Row: slot.Row, Col: slot.Col})
		}
		ship, err := board.Place(slot.Row, slot.Col, slot.Orientation, slot.Type)
		if err != nil {
			return err
		}
		fleet.Add(ship)
	}
	return nil
}

// PlaceDefaultFormation places DefaultFormation.
func PlaceDefaultFormation(board *Board, fleet *Fleet) error {
	return PlaceFormation(board, fleet, DefaultFormation)
}
