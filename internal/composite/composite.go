// Package composite reduces a raster time series into one raster per time
// bucket.
package composite

import (
	"context"
	"fmt"
	"time"

	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Composite is the reduction of every raster whose timestamp falls in Bucket.
// Count is the number of contributing rasters; zero means Raster is all
// no-data.
type Composite struct {
	Bucket Bucket
	Raster *raster.Raster
	Count  int
}

// Series holds composites in bucket order.
type Series []Composite

// Find returns the composite whose bucket starts at start.
func (s Series) Find(start time.Time) (Composite, bool) {
	for _, c := range s {
		if c.Bucket.Start.Equal(start) {
			return c, true
		}
	}
	return Composite{}, false
}

// FindLabel returns the composite whose bucket carries label.
func (s Series) FindLabel(label string) (Composite, bool) {
	for _, c := range s {
		if c.Bucket.Label == label {
			return c, true
		}
	}
	return Composite{}, false
}

// Timed returns the composites as a raster series tagged with bucket starts.
func (s Series) Timed() raster.Series {
	out := make(raster.Series, len(s))
	for i, c := range s {
		out[i] = raster.Timed{Time: c.Bucket.Start, Raster: c.Raster}
	}
	return out
}

type options struct {
	grid  *raster.Grid
	bands []string
	log   logrus.FieldLogger
}

type Option func(*options)

// WithTemplate sets the output grid, required when the series may be empty.
func WithTemplate(grid raster.Grid) Option {
	return func(o *options) { o.grid = &grid }
}

// WithBands restricts the composite to the named bands. By default every band
// of the first raster is reduced.
func WithBands(names ...string) Option {
	return func(o *options) { o.bands = names }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Compose buckets series by rule and reduces each band of each bucket pixel
// by pixel over valid values. A pixel with no valid value in a bucket is
// no-data, and a bucket with no raster at all yields an all no-data raster.
// Every raster must share one grid.
func Compose(ctx context.Context, series raster.Series, rule Rule, reducer Reducer, opts ...Option) (Series, error) {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	var grid raster.Grid
	switch {
	case o.grid != nil:
		grid = *o.grid
	case len(series) > 0:
		grid = series[0].Raster.Grid()
	default:
		return nil, ErrEmptySeries
	}
	bands := o.bands
	if bands == nil && len(series) > 0 {
		bands = series[0].Raster.BandNames()
	}
	for _, t := range series {
		if !t.Raster.Grid().Equal(grid) {
			return nil, fmt.Errorf("composite: raster at %s: %w", t.Time.Format(time.DateOnly), raster.ErrGridMismatch)
		}
	}

	buckets := rule.Buckets()
	out := make(Series, len(buckets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(raster.Workers())
	for i, b := range buckets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var members []*raster.Raster
			for _, t := range series {
				if b.Contains(t.Time) {
					members = append(members, t.Raster)
				}
			}
			r, err := reduce(grid, bands, members, reducer)
			if err != nil {
				return fmt.Errorf("composite %s: %w", b, err)
			}
			out[i] = Composite{Bucket: b, Raster: r, Count: len(members)}
			o.log.WithFields(logrus.Fields{
				"bucket":  b.String(),
				"rasters": len(members),
				"reducer": reducer.Name(),
			}).Debug("composite built")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func reduce(grid raster.Grid, bands []string, members []*raster.Raster, reducer Reducer) (*raster.Raster, error) {
	if len(members) == 0 {
		return raster.Filled(grid, raster.NoData, bands...), nil
	}
	out := make([]raster.Band, len(bands))
	for bi, name := range bands {
		inputs := make([][]float64, len(members))
		for mi, m := range members {
			data, err := m.Band(name)
			if err != nil {
				return nil, err
			}
			inputs[mi] = data
		}
		data := make([]float64, grid.Size())
		raster.Rows(grid.Height, func(y int) {
			values := make([]float64, 0, len(inputs))
			for i := y * grid.Width; i < (y+1)*grid.Width; i++ {
				values = values[:0]
				for _, in := range inputs {
					if !raster.IsNoData(in[i]) {
						values = append(values, in[i])
					}
				}
				if len(values) == 0 {
					data[i] = raster.NoData
					continue
				}
				data[i] = reducer.Reduce(values)
			}
		})
		out[bi] = raster.Band{Name: name, Data: data}
	}
	return raster.New(grid, out...)
}
