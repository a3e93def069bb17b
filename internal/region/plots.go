package region

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
)

var ErrPlotNotFound = errors.New("plot not found")

const plotIDProperty = "plot_id"

// Plots parses a feature collection and returns one region per feature,
// keyed by its plot_id property. Features without a plot_id are skipped.
func Plots(data []byte) (map[string]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	plots := make(map[string]Region, len(fc.Features))
	for _, f := range fc.Features {
		id, ok := f.Properties[plotIDProperty]
		if !ok || id == nil {
			continue
		}
		r, err := FromGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("plot %v: %w", id, err)
		}
		plots[fmt.Sprint(id)] = r
	}
	return plots, nil
}

// LoadPlot reads a GeoJSON file and returns the region of plotID.
func LoadPlot(path, plotID string) (Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Region{}, err
	}
	plots, err := Plots(data)
	if err != nil {
		return Region{}, fmt.Errorf("%s: %w", path, err)
	}
	r, ok := plots[plotID]
	if !ok {
		return Region{}, fmt.Errorf("%w: %s in %s", ErrPlotNotFound, plotID, path)
	}
	return r, nil
}
