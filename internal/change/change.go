// Package change derives differences and anomalies from a composite series.
package change

import (
	"fmt"
	"math"
	"time"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"gonum.org/v1/gonum/stat"
)

// Engine computes statistics over the composites of one series. Buckets are
// addressed by their start time.
type Engine struct {
	series composite.Series
}

func New(series composite.Series) *Engine {
	return &Engine{series: series}
}

func (e *Engine) bucket(start time.Time) (*raster.Raster, error) {
	c, ok := e.series.Find(start)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, start.Format(time.DateOnly))
	}
	if c.Count == 0 {
		return nil, fmt.Errorf("%w: %s has no rasters", ErrBucketNotFound, start.Format(time.DateOnly))
	}
	return c.Raster, nil
}

// Difference returns b - a band by band, the change from bucket a to
// bucket b.
func (e *Engine) Difference(a, b time.Time) (*raster.Raster, error) {
	ra, err := e.bucket(a)
	if err != nil {
		return nil, err
	}
	rb, err := e.bucket(b)
	if err != nil {
		return nil, err
	}
	return combine(rb, ra, func(x, y float64) float64 { return x - y })
}

// TemporalMean is the per-pixel mean over every composite, ignoring no-data.
func (e *Engine) TemporalMean() (*raster.Raster, error) {
	return e.reduce(func(values []float64) float64 {
		m, _ := meanStdDev(values)
		return m
	})
}

// TemporalStdDev is the per-pixel sample standard deviation over every
// composite. Pixels with fewer than two valid values are no-data.
func (e *Engine) TemporalStdDev() (*raster.Raster, error) {
	return e.reduce(func(values []float64) float64 {
		_, s := meanStdDev(values)
		return s
	})
}

// ZScoreAnomaly returns (x - mean) / stddev for the composite at start.
// A zero or undefined standard deviation gives no-data.
func (e *Engine) ZScoreAnomaly(start time.Time) (*raster.Raster, error) {
	x, err := e.bucket(start)
	if err != nil {
		return nil, err
	}
	mean, err := e.TemporalMean()
	if err != nil {
		return nil, err
	}
	std, err := e.TemporalStdDev()
	if err != nil {
		return nil, err
	}
	diff, err := combine(x, mean, func(a, b float64) float64 { return a - b })
	if err != nil {
		return nil, err
	}
	return combine(diff, std, func(d, s float64) float64 {
		if s == 0 {
			return raster.NoData
		}
		return d / s
	})
}

// DifferenceFromMean returns mean - x for the composite at start.
func (e *Engine) DifferenceFromMean(start time.Time) (*raster.Raster, error) {
	x, err := e.bucket(start)
	if err != nil {
		return nil, err
	}
	mean, err := e.TemporalMean()
	if err != nil {
		return nil, err
	}
	return combine(mean, x, func(m, v float64) float64 { return m - v })
}

func (e *Engine) reduce(fn func([]float64) float64) (*raster.Raster, error) {
	if len(e.series) == 0 {
		return nil, ErrEmptySeries
	}
	first := e.series[0].Raster
	grid := first.Grid()
	bands := make([]raster.Band, 0, len(first.BandNames()))
	for _, name := range first.BandNames() {
		inputs := make([][]float64, len(e.series))
		for i, c := range e.series {
			data, err := c.Raster.Band(name)
			if err != nil {
				return nil, fmt.Errorf("bucket %s: %w", c.Bucket, err)
			}
			inputs[i] = data
		}
		out := make([]float64, grid.Size())
		raster.Rows(grid.Height, func(y int) {
			values := make([]float64, 0, len(inputs))
			for i := y * grid.Width; i < (y+1)*grid.Width; i++ {
				values = values[:0]
				for _, in := range inputs {
					if !raster.IsNoData(in[i]) {
						values = append(values, in[i])
					}
				}
				out[i] = fn(values)
			}
		})
		bands = append(bands, raster.Band{Name: name, Data: out})
	}
	return raster.New(grid, bands...)
}

// meanStdDev returns exact results for constant inputs, where floating point
// summation would otherwise leave residue.
func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return raster.NoData, raster.NoData
	case 1:
		return values[0], raster.NoData
	}
	constant := true
	for _, v := range values[1:] {
		if v != values[0] {
			constant = false
			break
		}
	}
	if constant {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// combine applies fn to every band of a that b also carries. The result is
// no-data wherever either input is, or fn is not finite.
func combine(a, b *raster.Raster, fn func(x, y float64) float64) (*raster.Raster, error) {
	grid := a.Grid()
	if !grid.Equal(b.Grid()) {
		return nil, raster.ErrGridMismatch
	}
	var bands []raster.Band
	for _, name := range a.BandNames() {
		if !b.HasBand(name) {
			continue
		}
		xa, _ := a.Band(name)
		xb, _ := b.Band(name)
		out := make([]float64, grid.Size())
		raster.Rows(grid.Height, func(y int) {
			for i := y * grid.Width; i < (y+1)*grid.Width; i++ {
				if raster.IsNoData(xa[i]) || raster.IsNoData(xb[i]) {
					out[i] = raster.NoData
					continue
				}
				v := fn(xa[i], xb[i])
				if math.IsInf(v, 0) {
					v = raster.NoData
				}
				out[i] = v
			}
		})
		bands = append(bands, raster.Band{Name: name, Data: out})
	}
	return raster.New(grid, bands...)
}
