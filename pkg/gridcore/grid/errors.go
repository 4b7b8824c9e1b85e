package grid

import (
	"errors"
	"fmt"
)

// ErrOutOfRange indicates a coordinate outside the grid bounds.
var ErrOutOfRange = errors.New("coordinate out of range")

// ErrInvalidReference indicates text that is not a valid A1 reference,
// range or persisted cell key.
var ErrInvalidReference = errors.New("invalid cell reference")

// CoordinateError describes a rejected coordinate.
type CoordinateError struct {
	Row     int
	Col     int
	MaxRows int
	MaxCols int
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("cell (%d, %d) outside %dx%d grid", e.Row, e.Col, e.MaxRows, e.MaxCols)
}

func (e *CoordinateError) Unwrap() error {
	return ErrOutOfRange
}
