package reconcile

import "errors"

var (
	ErrDisjointExtent = errors.New("raster extents do not overlap")
	// ErrProjectionMismatch is returned when grids use different projections
	// and no Transformer was supplied.
	ErrProjectionMismatch = errors.New("projections differ and no transformer given")
)
