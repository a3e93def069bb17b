package output

import (
	"os"
	"path/filepath"

	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PixelsGeoJSON writes one point feature per pixel of the descriptor's
// raster that has a value in any mapped band. Coordinates are pixel centres
// in the raster's grid, so the raster should be lon/lat.
func PixelsGeoJSON(d Descriptor, path string) error {
	if err := d.validate(); err != nil {
		return err
	}
	if d.Raster == nil {
		return ErrNothingToRender
	}
	r, err := d.prepare(d.Raster)
	if err != nil {
		return err
	}
	bands := make([][]float64, len(d.BandMapping))
	for i, name := range d.BandMapping {
		if bands[i], err = r.Band(name); err != nil {
			return err
		}
	}

	grid := r.Grid()
	fc := geojson.NewFeatureCollection()
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			i := y*grid.Width + x
			props := geojson.Properties{"x": x, "y": y}
			found := false
			for b, name := range d.BandMapping {
				if v := bands[b][i]; !raster.IsNoData(v) {
					props[name] = v
					found = true
				}
			}
			if !found {
				continue
			}
			gx, gy := grid.PixelCenter(x, y)
			f := geojson.NewFeature(orb.Point{gx, gy})
			f.Properties = props
			fc.Append(f)
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
