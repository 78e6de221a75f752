package engine

import "errors"

// Engine errors
var (
	ErrInvalidPlacement = errors.New("invalid ship placement")
	ErrAlreadyAttacked  = errors.New("cell already attacked")
	ErrWrongTurn        = errors.New("not your turn")
	ErrOutOfBounds      = errors.New("position out of bounds")
	ErrPlacementFailed  = errors.New("could not place fleet")
	ErrPlacementLocked  = errors.New("ships cannot be relocated after the first shot")
	ErrShipNotFound     = errors.New("ship not found")
	ErrCorruptSnapshot  = errors.New("corrupt game snapshot")
	ErrBlankName        = errors.New("name cannot be blank")
	ErrMatchOver        = errors.New("match is over")
	ErrMalformedConfig  = errors.New("malformed match config")
)
