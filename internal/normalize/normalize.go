// Package normalize converts stored band values to physical units.
package normalize

import (
	"fmt"

	"github.com/forest-guardian/geocomposite/internal/raster"
)

// Scale maps a stored value v to v*Multiplier + Offset.
type Scale struct {
	Multiplier float64
	Offset     float64
}

// Identity leaves values unchanged.
var Identity = Scale{Multiplier: 1}

func (s Scale) apply(v float64) float64 {
	return v*s.Multiplier + s.Offset
}

// Apply returns r with every band listed in scales rescaled. Unlisted bands
// pass through untouched and NaN stays NaN.
func Apply(r *raster.Raster, scales map[string]Scale) (*raster.Raster, error) {
	for name := range scales {
		if !r.HasBand(name) {
			return nil, fmt.Errorf("normalize: %w: %s", raster.ErrMissingBand, name)
		}
	}
	out := r
	grid := r.Grid()
	for _, name := range r.BandNames() {
		scale, ok := scales[name]
		if !ok {
			continue
		}
		src, _ := r.Band(name)
		dst := make([]float64, len(src))
		raster.Rows(grid.Height, func(y int) {
			for i := y * grid.Width; i < (y+1)*grid.Width; i++ {
				dst[i] = scale.apply(src[i])
			}
		})
		var err error
		if out, err = out.WithBand(name, dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}
