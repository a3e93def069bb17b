package composite

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer collapses the valid values of one pixel into a single value.
// Reduce is never called with an empty slice and may reorder it.
type Reducer interface {
	Name() string
	Reduce(values []float64) float64
}

type reducer struct {
	name string
	fn   func([]float64) float64
}

func (r reducer) Name() string                    { return r.name }
func (r reducer) Reduce(values []float64) float64 { return r.fn(values) }

var (
	Mean = reducer{name: "mean", fn: func(v []float64) float64 {
		return stat.Mean(v, nil)
	}}
	// Median averages the two middle values when the count is even.
	Median = reducer{name: "median", fn: func(v []float64) float64 {
		m, _ := stats.Median(stats.Float64Data(v))
		return m
	}}
	Max = reducer{name: "max", fn: floats.Max}
	Min = reducer{name: "min", fn: floats.Min}
	Sum = reducer{name: "sum", fn: floats.Sum}
)

// ReducerByName resolves the reducers above by name, case-insensitively.
func ReducerByName(name string) (Reducer, error) {
	switch strings.ToLower(name) {
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	case "sum":
		return Sum, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownReducer, name)
}
