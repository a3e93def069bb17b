// Package quality derives per-pixel validity masks from sensor quality bands.
package quality

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/forest-guardian/geocomposite/internal/raster"
)

// ErrDuplicateMaskBand is returned when two conceptually different masks
// (cloud probability and cirrus) are configured on the same band.
var ErrDuplicateMaskBand = errors.New("distinct masks configured on the same band")

// Condition decides from one quality band value whether a pixel is usable.
// A no-data quality value is always invalid.
type Condition interface {
	Band() string
	Valid(v float64) bool
}

// BitsClear is valid when none of Bits are set in the integer quality value.
type BitsClear struct {
	BandName string
	Bits     uint32
}

func (c BitsClear) Band() string { return c.BandName }
func (c BitsClear) Valid(v float64) bool {
	return uint32(int64(v))&c.Bits == 0
}

// Below is valid when the value is strictly less than Max.
type Below struct {
	BandName string
	Max      float64
}

func (c Below) Band() string         { return c.BandName }
func (c Below) Valid(v float64) bool { return v < c.Max }

// AtMost is valid when the value does not exceed Max.
type AtMost struct {
	BandName string
	Max      float64
}

func (c AtMost) Band() string         { return c.BandName }
func (c AtMost) Valid(v float64) bool { return v <= c.Max }

// Equals is valid when the value equals Value.
type Equals struct {
	BandName string
	Value    float64
}

func (c Equals) Band() string         { return c.BandName }
func (c Equals) Valid(v float64) bool { return v == c.Value }

// ExcludeClasses is invalid when the value is one of Classes, as in scene
// classification layers.
type ExcludeClasses struct {
	BandName string
	Classes  []int
}

func (c ExcludeClasses) Band() string { return c.BandName }
func (c ExcludeClasses) Valid(v float64) bool {
	return !slices.Contains(c.Classes, int(math.Round(v)))
}

// Spec is a named set of conditions; a pixel is valid only when every
// condition holds.
type Spec struct {
	Name       string
	Conditions []Condition
}

// Build evaluates spec against r and returns the resulting mask.
func Build(r *raster.Raster, spec Spec) (raster.Mask, error) {
	grid := r.Grid()
	mask := raster.AllValid(grid)
	for _, cond := range spec.Conditions {
		data, err := r.Band(cond.Band())
		if err != nil {
			return nil, fmt.Errorf("quality mask %s: %w", spec.Name, err)
		}
		raster.Rows(grid.Height, func(y int) {
			for i := y * grid.Width; i < (y+1)*grid.Width; i++ {
				v := data[i]
				if raster.IsNoData(v) || !cond.Valid(v) {
					mask[i] = false
				}
			}
		})
	}
	return mask, nil
}

// Apply builds the mask for spec and returns r with every invalid pixel set
// to no-data in all bands.
func Apply(r *raster.Raster, spec Spec) (*raster.Raster, raster.Mask, error) {
	mask, err := Build(r, spec)
	if err != nil {
		return nil, nil, err
	}
	masked, err := r.WithMask(mask)
	if err != nil {
		return nil, nil, err
	}
	return masked, mask, nil
}
