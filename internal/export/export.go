// Package export writes finished rasters to GeoTIFF files and keeps a
// manifest of what was written.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/logging"
	"github.com/forest-guardian/geocomposite/internal/metrics"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrPixelBudget = errors.New("export exceeds pixel budget")
	ErrNoRaster    = errors.New("export request has no raster")
)

const lonLat = "EPSG:4326"

// metersPerDegree is the equatorial length of one degree, used to turn a
// metric pixel scale into a lon/lat pixel size.
const metersPerDegree = 111320.0

// Request describes one export. Region, PixelScaleMeters and MaxPixelBudget
// are optional. A region or a pixel scale makes the output lon/lat; a raster
// without a projection is taken to be lon/lat already.
type Request struct {
	Raster            *raster.Raster
	DestinationFolder string
	FilenamePrefix    string
	Region            region.Region
	PixelScaleMeters  float64
	MaxPixelBudget    int
}

type Result struct {
	ID     string
	Path   string
	Width  int
	Height int
	Pixels int
}

type Exporter interface {
	Export(ctx context.Context, req Request) (Result, error)
}

// GeoTIFF is the file exporter. Manifest, Metrics and Log may be nil.
type GeoTIFF struct {
	Manifest *Manifest
	Metrics  *metrics.Manager
	Log      logrus.FieldLogger
}

func (g *GeoTIFF) Export(ctx context.Context, req Request) (Result, error) {
	if req.Raster == nil {
		return Result{}, ErrNoRaster
	}
	log := g.Log
	if log == nil {
		log = logging.Discard()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	out, err := prepare(req)
	if err != nil {
		return Result{}, err
	}
	grid := out.Grid()
	pixels := grid.Size()
	if req.MaxPixelBudget > 0 && pixels > req.MaxPixelBudget {
		return Result{}, fmt.Errorf("%w: %d pixels, budget %d", ErrPixelBudget, pixels, req.MaxPixelBudget)
	}

	if err := os.MkdirAll(req.DestinationFolder, 0o755); err != nil {
		return Result{}, err
	}
	name := req.FilenamePrefix
	if !strings.HasSuffix(name, ".tif") {
		name += ".tif"
	}
	path := filepath.Join(req.DestinationFolder, name)
	if err := gdalio.Write(path, out); err != nil {
		return Result{}, err
	}

	res := Result{ID: uuid.NewString(), Path: path, Width: grid.Width, Height: grid.Height, Pixels: pixels}
	err = g.Manifest.Record(ctx, Entry{
		ID:        res.ID,
		Prefix:    req.FilenamePrefix,
		Path:      path,
		Bands:     strings.Join(out.BandNames(), ","),
		Width:     grid.Width,
		Height:    grid.Height,
		Pixels:    pixels,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return Result{}, err
	}
	g.Metrics.PixelsExported(pixels)
	log.WithFields(logrus.Fields{"path": path, "pixels": pixels, "id": res.ID}).Info("raster exported")
	return res, nil
}

// prepare warps and clips the request raster into the grid that will be
// written.
func prepare(req Request) (*raster.Raster, error) {
	r := req.Raster
	grid := r.Grid()
	if req.Region.IsZero() && req.PixelScaleMeters <= 0 {
		return r, nil
	}

	geographic := grid.Projection == ""
	if !geographic {
		var err error
		if geographic, err = gdalio.Geographic(grid.Projection); err != nil {
			return nil, err
		}
	}
	size := req.PixelScaleMeters / metersPerDegree
	if size <= 0 {
		w, _ := grid.PixelSize()
		size = w
		if !geographic {
			size = w / metersPerDegree
		}
	}
	if !geographic || req.PixelScaleMeters > 0 {
		var err error
		if r, err = gdalio.Warp(r, lonLat, size); err != nil {
			return nil, err
		}
	}
	if req.Region.IsZero() {
		return r, nil
	}
	return req.Region.Clip(r)
}
