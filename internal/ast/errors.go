package ast

import "errors"

var (
	// ErrInvalidInput reports inputs the samplers cannot work with: missing
	// coordinate columns, a missing transform, empty model sets, degenerate
	// density maps or bad counts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeometry reports that no position with non-negative pixel
	// coordinates was found within the attempt limit.
	ErrGeometry = errors.New("no valid position found")
)
