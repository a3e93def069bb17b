package gdalio_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/gdalio"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/smartystreets/goconvey/convey"
)

func TestRoundTrip(t *testing.T) {
	convey.Convey("Given a two band raster written as GeoTIFF", t, func() {
		grid := raster.NorthUp(3, 2, 500000, 4000000, 30, 30, "EPSG:32631")
		r, err := raster.New(grid,
			raster.Band{Name: "NDVI", Data: []float64{0.1, 0.2, raster.NoData, 0.4, 0.5, 0.6}},
			raster.Band{Name: "EVI", Data: []float64{1, 2, 3, 4, 5, 6}},
		)
		convey.So(err, convey.ShouldBeNil)
		path := filepath.Join(t.TempDir(), "composite.tif")
		convey.So(gdalio.Write(path, r), convey.ShouldBeNil)

		back, err := gdalio.Read(path)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then names, geometry and values survive", func() {
			convey.So(back.BandNames(), convey.ShouldResemble, []string{"NDVI", "EVI"})
			convey.So(back.Grid().GeoTransform, convey.ShouldResemble, grid.GeoTransform)
			convey.So(back.At("NDVI", 1, 0), convey.ShouldEqual, 0.2)
			convey.So(math.IsNaN(back.At("NDVI", 2, 0)), convey.ShouldBeTrue)
			convey.So(back.At("EVI", 2, 1), convey.ShouldEqual, 6)
		})

		convey.Convey("Then a window reads only the covered pixels", func() {
			win, err := gdalio.ReadWindow(path, [4]float64{500031, 3999950, 500089, 3999999})
			convey.So(err, convey.ShouldBeNil)
			convey.So(win.Grid().Width, convey.ShouldEqual, 2)
			convey.So(win.Grid().Height, convey.ShouldEqual, 2)
			convey.So(win.Grid().GeoTransform[0], convey.ShouldEqual, 500030)
			convey.So(win.At("EVI", 0, 0), convey.ShouldEqual, 2)
			convey.So(win.At("EVI", 1, 1), convey.ShouldEqual, 6)

			_, err = gdalio.ReadWindow(path, [4]float64{0, 0, 10, 10})
			convey.So(errors.Is(err, gdalio.ErrOutsideDataset), convey.ShouldBeTrue)
		})

		convey.Convey("Then Info reports the grid without pixels", func() {
			g, err := gdalio.Info(path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(g.Width, convey.ShouldEqual, 3)
			convey.So(g.Height, convey.ShouldEqual, 2)
		})

		convey.Convey("Then explicit names take precedence", func() {
			named, err := gdalio.Read(path, "a", "b")
			convey.So(err, convey.ShouldBeNil)
			convey.So(named.BandNames(), convey.ShouldResemble, []string{"a", "b"})
		})
	})
}

func TestTransformer(t *testing.T) {
	convey.Convey("UTM coordinates convert to lon/lat", t, func() {
		tr, err := gdalio.NewTransformer("EPSG:32631", "EPSG:4326")
		convey.So(err, convey.ShouldBeNil)
		defer tr.Close()

		xs, ys := []float64{500000}, []float64{0}
		convey.So(tr.Transform(xs, ys), convey.ShouldBeNil)
		convey.So(xs[0], convey.ShouldAlmostEqual, 3, 1e-6)
		convey.So(ys[0], convey.ShouldAlmostEqual, 0, 1e-6)
	})
}
