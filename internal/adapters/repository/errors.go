package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidLimit = errors.New("invalid row limit")
	ErrInvalidScope = errors.New("invalid aggregation scope")
	ErrBadVariant   = errors.New("stored variant does not parse")
)
