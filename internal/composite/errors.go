package composite

import "errors"

var (
	// ErrEmptySeries is returned when there is no raster to take the output
	// grid from and no template was given.
	ErrEmptySeries = errors.New("empty series and no template grid")
	// ErrUnknownReducer is returned by ReducerByName.
	ErrUnknownReducer = errors.New("unknown reducer")
)
