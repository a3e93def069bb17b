package export_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/export"
	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/metrics"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func lonLatRaster() *raster.Raster {
	grid := raster.NorthUp(4, 4, -48, -15, 0.01, 0.01, "EPSG:4326")
	data := make([]float64, grid.Size())
	for i := range data {
		data[i] = float64(i)
	}
	r, _ := raster.New(grid, raster.Band{Name: "NDVI", Data: data})
	return r
}

func TestGeoTIFFExport(t *testing.T) {
	convey.Convey("Given an exporter with a manifest and metrics", t, func() {
		dir := t.TempDir()
		manifest, err := export.OpenManifest(filepath.Join(dir, "manifest.db"))
		convey.So(err, convey.ShouldBeNil)
		defer manifest.Close()
		m := metrics.NewManager()
		exp := &export.GeoTIFF{Manifest: manifest, Metrics: m}
		ctx := context.Background()

		convey.Convey("When a raster is exported within budget", func() {
			res, err := exp.Export(ctx, export.Request{
				Raster:            lonLatRaster(),
				DestinationFolder: filepath.Join(dir, "out"),
				FilenamePrefix:    "ndvi_2016",
				MaxPixelBudget:    16,
			})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the file round trips and is recorded", func() {
				convey.So(res.Path, convey.ShouldEqual, filepath.Join(dir, "out", "ndvi_2016.tif"))
				back, err := gdalio.Read(res.Path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(back.At("NDVI", 3, 3), convey.ShouldEqual, 15)

				entries, err := manifest.List(ctx, "ndvi_2016")
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 1)
				convey.So(entries[0].ID, convey.ShouldEqual, res.ID)
				convey.So(entries[0].Pixels, convey.ShouldEqual, 16)
				convey.So(entries[0].Bands, convey.ShouldEqual, "NDVI")
				expected := `
# HELP geocomposite_export_pixels_total Pixels written by exporters.
# TYPE geocomposite_export_pixels_total counter
geocomposite_export_pixels_total 16
`
				err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "geocomposite_export_pixels_total")
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the raster exceeds the pixel budget", func() {
			_, err := exp.Export(ctx, export.Request{
				Raster:            lonLatRaster(),
				DestinationFolder: dir,
				FilenamePrefix:    "too_big",
				MaxPixelBudget:    10,
			})
			convey.So(errors.Is(err, export.ErrPixelBudget), convey.ShouldBeTrue)
			entries, _ := manifest.List(ctx, "")
			convey.So(entries, convey.ShouldBeEmpty)
		})

		convey.Convey("When a region is given the outside pixels become no-data", func() {
			area, err := region.FromGeometry(orb.Bound{Min: orb.Point{-48, -15.02}, Max: orb.Point{-47.98, -15}})
			convey.So(err, convey.ShouldBeNil)
			res, err := exp.Export(ctx, export.Request{
				Raster:            lonLatRaster(),
				DestinationFolder: dir,
				FilenamePrefix:    "clipped",
				Region:            area,
			})
			convey.So(err, convey.ShouldBeNil)
			back, err := gdalio.Read(res.Path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(back.At("NDVI", 0, 0), convey.ShouldEqual, 0)
			convey.So(back.At("NDVI", 1, 1), convey.ShouldEqual, 5)
			convey.So(raster.IsNoData(back.At("NDVI", 3, 3)), convey.ShouldBeTrue)
		})

		convey.Convey("A request without a raster is rejected", func() {
			_, err := exp.Export(ctx, export.Request{DestinationFolder: dir})
			convey.So(errors.Is(err, export.ErrNoRaster), convey.ShouldBeTrue)
		})
	})
}
