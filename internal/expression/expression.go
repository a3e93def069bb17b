// Package expression evaluates per-pixel band formulas such as spectral indices.
package expression

import (
	"fmt"
	"math"

	"github.com/forest-guardian/geocomposite/internal/raster"
)

// BandExpression computes Output from Inputs, pixel by pixel. Formula receives
// the input values in the order of Inputs and must not retain the slice.
type BandExpression struct {
	Output  string
	Inputs  []string
	Formula func(in []float64) float64
}

// Evaluate returns r with expr.Output appended, or replaced when r already
// has a band of that name. Pixels where any input is no-data, or where the
// formula yields an infinity or NaN, become no-data.
func Evaluate(r *raster.Raster, expr BandExpression) (*raster.Raster, error) {
	inputs := make([][]float64, len(expr.Inputs))
	for i, name := range expr.Inputs {
		data, err := r.Band(name)
		if err != nil {
			return nil, fmt.Errorf("expression %s: %w", expr.Output, err)
		}
		inputs[i] = data
	}

	grid := r.Grid()
	out := make([]float64, grid.Size())
	raster.Rows(grid.Height, func(y int) {
		args := make([]float64, len(inputs))
		for i := y * grid.Width; i < (y+1)*grid.Width; i++ {
			out[i] = eval(expr.Formula, inputs, args, i)
		}
	})
	return r.WithBand(expr.Output, out)
}

// EvaluateAll applies exprs in order, so later expressions may read the
// outputs of earlier ones.
func EvaluateAll(r *raster.Raster, exprs ...BandExpression) (*raster.Raster, error) {
	var err error
	for _, expr := range exprs {
		if r, err = Evaluate(r, expr); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func eval(formula func([]float64) float64, inputs [][]float64, args []float64, i int) float64 {
	for j, in := range inputs {
		if raster.IsNoData(in[i]) {
			return raster.NoData
		}
		args[j] = in[i]
	}
	v := formula(args)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return raster.NoData
	}
	return v
}
