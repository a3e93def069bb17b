// Package gdalio moves rasters between GDAL datasets and raster.Raster.
package gdalio

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/utils"
)

func init() {
	godal.RegisterAll()
}

// quiet drops GDAL warnings and turns errors into Go errors.
var quiet = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("gdal error %d: %s", code, msg)
})

// Read loads every band of the dataset at path. Bands are named after names
// in order, then after their GDAL description, then b1, b2, ...
func Read(path string, names ...string) (*raster.Raster, error) {
	return read(path, nil, names)
}

// ReadWindow loads only the pixels of path intersecting bounds (minX, minY,
// maxX, maxY in the dataset's coordinate system).
func ReadWindow(path string, bounds [4]float64, names ...string) (*raster.Raster, error) {
	return read(path, &bounds, names)
}

// Info returns the grid of the dataset at path without reading pixels.
func Info(path string) (raster.Grid, error) {
	var grid raster.Grid
	err := utils.ExecuteWithGDAL(func() error {
		ds, err := godal.Open(path, quiet)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer ds.Close()
		grid = gridOf(ds)
		return nil
	})
	return grid, err
}

func read(path string, bounds *[4]float64, names []string) (*raster.Raster, error) {
	var r *raster.Raster
	err := utils.ExecuteWithGDAL(func() error {
		ds, err := godal.Open(path, quiet)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer ds.Close()
		grid := gridOf(ds)
		win := window{w: grid.Width, h: grid.Height}
		if bounds != nil {
			if win, err = windowOf(grid, *bounds); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
		}
		r, err = readWindow(ds, grid, win, names)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		return nil
	})
	return r, err
}

func gridOf(ds *godal.Dataset) raster.Grid {
	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		gt = [6]float64{0, 1, 0, 0, 0, -1}
	}
	return raster.Grid{
		Width:        st.SizeX,
		Height:       st.SizeY,
		GeoTransform: gt,
		Projection:   ds.Projection(),
	}
}

type window struct{ x, y, w, h int }

// ErrOutsideDataset is returned by ReadWindow when bounds miss the dataset.
var ErrOutsideDataset = errors.New("bounds outside dataset")

func windowOf(grid raster.Grid, b [4]float64) (window, error) {
	minCol, minRow := math.Inf(1), math.Inf(1)
	maxCol, maxRow := math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{b[0], b[1]}, {b[0], b[3]}, {b[2], b[1]}, {b[2], b[3]}} {
		col, row, ok := grid.ToPixel(c[0], c[1])
		if !ok {
			return window{}, ErrOutsideDataset
		}
		minCol, maxCol = math.Min(minCol, col), math.Max(maxCol, col)
		minRow, maxRow = math.Min(minRow, row), math.Max(maxRow, row)
	}
	x0 := max(0, int(math.Floor(minCol)))
	y0 := max(0, int(math.Floor(minRow)))
	x1 := min(grid.Width, int(math.Ceil(maxCol)))
	y1 := min(grid.Height, int(math.Ceil(maxRow)))
	if x1 <= x0 || y1 <= y0 {
		return window{}, ErrOutsideDataset
	}
	return window{x: x0, y: y0, w: x1 - x0, h: y1 - y0}, nil
}

func fromDataset(ds *godal.Dataset, names []string) (*raster.Raster, error) {
	grid := gridOf(ds)
	return readWindow(ds, grid, window{w: grid.Width, h: grid.Height}, names)
}

func readWindow(ds *godal.Dataset, full raster.Grid, win window, names []string) (*raster.Raster, error) {
	ox, oy := full.ToGeo(float64(win.x), float64(win.y))
	gt := full.GeoTransform
	gt[0], gt[3] = ox, oy
	grid := raster.Grid{Width: win.w, Height: win.h, GeoTransform: gt, Projection: full.Projection}

	bands := make([]raster.Band, 0, len(ds.Bands()))
	for i, b := range ds.Bands() {
		data := make([]float64, grid.Size())
		if err := b.Read(win.x, win.y, data, win.w, win.h); err != nil {
			return nil, fmt.Errorf("band %d: %w", i+1, err)
		}
		if nd, ok := b.NoData(); ok {
			for j, v := range data {
				if v == nd {
					data[j] = raster.NoData
				}
			}
		}
		bands = append(bands, raster.Band{Name: bandName(b, i, names), Data: data})
	}
	return raster.New(grid, bands...)
}

func bandName(b godal.Band, i int, names []string) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	if d := b.Description(); d != "" {
		return d
	}
	return "b" + strconv.Itoa(i+1)
}

// Write stores r as a float64 GeoTIFF with NaN as no-data and band names as
// band descriptions.
func Write(path string, r *raster.Raster) error {
	return utils.ExecuteWithGDAL(func() error {
		ds, err := toDataset(godal.GTiff, path, r, godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return ds.Close()
	})
}

func toDataset(driver godal.DriverName, path string, r *raster.Raster, opts ...godal.DatasetCreateOption) (*godal.Dataset, error) {
	grid := r.Grid()
	names := r.BandNames()
	if len(names) == 0 {
		return nil, errors.New("raster has no bands")
	}
	opts = append(opts, quiet)
	ds, err := godal.Create(driver, path, len(names), godal.Float64, grid.Width, grid.Height, opts...)
	if err != nil {
		return nil, err
	}
	if err := ds.SetGeoTransform(grid.GeoTransform); err != nil {
		ds.Close()
		return nil, err
	}
	if grid.Projection != "" {
		sr, err := godal.NewSpatialRef(grid.Projection)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("projection %q: %w", grid.Projection, err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			ds.Close()
			return nil, err
		}
	}
	for i, b := range ds.Bands() {
		data, _ := r.Band(names[i])
		if err := b.SetNoData(math.NaN()); err != nil {
			ds.Close()
			return nil, err
		}
		if err := b.SetDescription(names[i]); err != nil {
			ds.Close()
			return nil, err
		}
		if err := b.Write(0, 0, data, grid.Width, grid.Height); err != nil {
			ds.Close()
			return nil, fmt.Errorf("band %s: %w", names[i], err)
		}
	}
	return ds, nil
}

// Warp reprojects r to projection (any definition GDAL accepts, e.g.
// "EPSG:4326") at the given pixel size, with bilinear resampling.
func Warp(r *raster.Raster, projection string, pixelSize float64) (*raster.Raster, error) {
	var out *raster.Raster
	err := utils.ExecuteWithGDAL(func() error {
		src, err := toDataset(godal.Memory, "", r)
		if err != nil {
			return fmt.Errorf("warp source: %w", err)
		}
		defer src.Close()
		ps := strconv.FormatFloat(pixelSize, 'f', -1, 64)
		dst, err := src.Warp("", []string{
			"-of", "MEM",
			"-t_srs", projection,
			"-tr", ps, ps,
			"-r", "bilinear",
			"-dstnodata", "nan",
		}, quiet)
		if err != nil {
			return fmt.Errorf("warp to %s: %w", projection, err)
		}
		defer dst.Close()
		out, err = fromDataset(dst, r.BandNames())
		return err
	})
	return out, err
}
