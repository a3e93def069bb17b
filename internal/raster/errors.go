package raster

import "errors"

var (
	// ErrMissingBand is returned when an operation references a band the raster does not carry.
	ErrMissingBand = errors.New("missing band")
	// ErrGridMismatch is returned when two rasters must share a grid and do not.
	ErrGridMismatch = errors.New("grid mismatch")
	// ErrBandLength is returned when band data does not match the grid size.
	ErrBandLength = errors.New("band length does not match grid")
)
