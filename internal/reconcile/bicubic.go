// Package reconcile resamples rasters between grids of different resolution.
package reconcile

import (
	"fmt"
	"math"

	"github.com/forest-guardian/geocomposite/internal/raster"
)

// Transformer converts coordinates from the target projection into the source
// projection, in place.
type Transformer interface {
	Transform(xs, ys []float64) error
}

type options struct {
	transformer Transformer
}

type Option func(*options)

func WithTransformer(t Transformer) Option {
	return func(o *options) { o.transformer = t }
}

// keys is the cubic convolution kernel with a = -0.5.
func keys(x float64) float64 {
	const a = -0.5
	x = math.Abs(x)
	switch {
	case x <= 1:
		return ((a+2)*x-(a+3))*x*x + 1
	case x < 2:
		return ((a*x-5*a)*x+8*a)*x - 4*a
	}
	return 0
}

// Bicubic resamples every band of coarse onto the fine grid. Each fine pixel
// center is located in the coarse raster and interpolated from the 4x4
// neighbourhood of coarse pixel centers, edges clamped. When any of those 16
// values is no-data the nearest coarse pixel is used instead. Fine pixels
// outside the coarse extent are no-data.
func Bicubic(coarse *raster.Raster, fine raster.Grid, opts ...Option) (*raster.Raster, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	src := coarse.Grid()
	if o.transformer == nil && src.Projection != fine.Projection && src.Projection != "" && fine.Projection != "" {
		return nil, ErrProjectionMismatch
	}

	xs, ys := sampleCoordinates(fine)
	if o.transformer != nil {
		if err := o.transformer.Transform(xs, ys); err != nil {
			return nil, fmt.Errorf("reconcile: transform: %w", err)
		}
	}
	if !overlaps(src.Bounds(), extent(xs, ys, fine)) {
		return nil, ErrDisjointExtent
	}

	bands := make([]raster.Band, 0, len(coarse.BandNames()))
	for _, name := range coarse.BandNames() {
		in, _ := coarse.Band(name)
		out := make([]float64, fine.Size())
		raster.Rows(fine.Height, func(y int) {
			for x := 0; x < fine.Width; x++ {
				i := y*fine.Width + x
				out[i] = sample(src, in, xs[i], ys[i])
			}
		})
		bands = append(bands, raster.Band{Name: name, Data: out})
	}
	return raster.New(fine, bands...)
}

func sampleCoordinates(g raster.Grid) ([]float64, []float64) {
	xs := make([]float64, g.Size())
	ys := make([]float64, g.Size())
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			xs[y*g.Width+x], ys[y*g.Width+x] = g.PixelCenter(x, y)
		}
	}
	return xs, ys
}

// extent returns the bounds covered by the fine grid, using its pixel
// centers grown by half a fine pixel.
func extent(xs, ys []float64, g raster.Grid) [4]float64 {
	b := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for i := range xs {
		b[0] = math.Min(b[0], xs[i])
		b[1] = math.Min(b[1], ys[i])
		b[2] = math.Max(b[2], xs[i])
		b[3] = math.Max(b[3], ys[i])
	}
	pw, ph := g.PixelSize()
	hw, hh := math.Abs(pw)/2, math.Abs(ph)/2
	return [4]float64{b[0] - hw, b[1] - hh, b[2] + hw, b[3] + hh}
}

func overlaps(a, b [4]float64) bool {
	return a[0] < b[2] && b[0] < a[2] && a[1] < b[3] && b[1] < a[3]
}

func sample(g raster.Grid, data []float64, gx, gy float64) float64 {
	col, row, ok := g.ToPixel(gx, gy)
	if !ok || col < 0 || row < 0 || col > float64(g.Width) || row > float64(g.Height) {
		return raster.NoData
	}
	u, v := col-0.5, row-0.5
	x0, y0 := int(math.Floor(u)), int(math.Floor(v))
	tx, ty := u-float64(x0), v-float64(y0)

	var sum float64
	for j := -1; j <= 2; j++ {
		wy := keys(ty - float64(j))
		yy := clamp(y0+j, g.Height)
		for i := -1; i <= 2; i++ {
			val := data[yy*g.Width+clamp(x0+i, g.Width)]
			if raster.IsNoData(val) {
				return nearest(g, data, col, row)
			}
			sum += wy * keys(tx-float64(i)) * val
		}
	}
	return sum
}

func nearest(g raster.Grid, data []float64, col, row float64) float64 {
	return data[clamp(int(row), g.Height)*g.Width+clamp(int(col), g.Width)]
}

func clamp(i, n int) int {
	return max(0, min(i, n-1))
}
