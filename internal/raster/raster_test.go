package raster_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/smartystreets/goconvey/convey"
)

func testGrid(w, h int) raster.Grid {
	return raster.NorthUp(w, h, 10, 20, 2, 2, "EPSG:4326")
}

func TestRaster(t *testing.T) {
	convey.Convey("Given a two band raster", t, func() {
		grid := testGrid(3, 2)
		r, err := raster.New(grid,
			raster.Band{Name: "red", Data: []float64{1, 2, 3, 4, 5, 6}},
			raster.Band{Name: "nir", Data: []float64{6, 5, 4, 3, 2, 1}},
		)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then bands keep their insertion order", func() {
			convey.So(r.BandNames(), convey.ShouldResemble, []string{"red", "nir"})
			convey.So(r.At("nir", 2, 1), convey.ShouldEqual, 1)
		})

		convey.Convey("When a missing band is requested", func() {
			_, err := r.Band("swir")
			convey.So(errors.Is(err, raster.ErrMissingBand), convey.ShouldBeTrue)
		})

		convey.Convey("When a band is added", func() {
			out, err := r.WithBand("blue", []float64{0, 0, 0, 0, 0, 0})
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.BandNames(), convey.ShouldResemble, []string{"red", "nir", "blue"})
			convey.So(r.HasBand("blue"), convey.ShouldBeFalse)
		})

		convey.Convey("When band data has the wrong length", func() {
			_, err := r.WithBand("blue", []float64{0})
			convey.So(errors.Is(err, raster.ErrBandLength), convey.ShouldBeTrue)
		})

		convey.Convey("When a mask is applied", func() {
			mask := raster.AllValid(grid)
			mask[0] = false
			out, err := r.WithMask(mask)
			convey.So(err, convey.ShouldBeNil)
			convey.So(raster.IsNoData(out.At("red", 0, 0)), convey.ShouldBeTrue)
			convey.So(raster.IsNoData(out.At("nir", 0, 0)), convey.ShouldBeTrue)
			convey.So(out.At("red", 1, 0), convey.ShouldEqual, 2)
			convey.So(r.At("red", 0, 0), convey.ShouldEqual, 1)
		})

		convey.Convey("When merging with a raster on another grid", func() {
			other := raster.Filled(testGrid(2, 2), 1, "x")
			_, err := r.Merge(other)
			convey.So(errors.Is(err, raster.ErrGridMismatch), convey.ShouldBeTrue)
		})
	})
}

func TestGrid(t *testing.T) {
	convey.Convey("Given a north-up grid", t, func() {
		grid := testGrid(4, 3)

		convey.Convey("Then pixel centres round-trip through ToPixel", func() {
			gx, gy := grid.PixelCenter(2, 1)
			convey.So(gx, convey.ShouldEqual, 15)
			convey.So(gy, convey.ShouldEqual, 17)
			col, row, ok := grid.ToPixel(gx, gy)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(col, convey.ShouldAlmostEqual, 2.5)
			convey.So(row, convey.ShouldAlmostEqual, 1.5)
		})

		convey.Convey("Then bounds cover the full extent", func() {
			convey.So(grid.Bounds(), convey.ShouldResemble, [4]float64{10, 14, 18, 20})
		})
	})
}

func TestSeriesSorted(t *testing.T) {
	convey.Convey("Given an unsorted series", t, func() {
		a := raster.Filled(testGrid(1, 1), 1, "b")
		b := raster.Filled(testGrid(1, 1), 2, "b")
		c := raster.Filled(testGrid(1, 1), 3, "b")
		d1 := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
		d0 := time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC)
		s := raster.Series{{Time: d1, Raster: a}, {Time: d0, Raster: b}, {Time: d1, Raster: c}}

		sorted := s.Sorted()
		convey.So(sorted.Times(), convey.ShouldResemble, []time.Time{d0, d1, d1})
		convey.So(sorted[1].Raster, convey.ShouldPointTo, a)
		convey.So(sorted[2].Raster, convey.ShouldPointTo, c)
		convey.So(s[0].Time, convey.ShouldEqual, d1)
		convey.So(s.Between(d0, d1), convey.ShouldHaveLength, 1)
	})
}

func TestRows(t *testing.T) {
	convey.Convey("Rows visits every row exactly once", t, func() {
		raster.SetWorkers(3)
		defer raster.SetWorkers(0)
		seen := make([]int, 37)
		raster.Rows(len(seen), func(y int) { seen[y]++ })
		for _, n := range seen {
			convey.So(n, convey.ShouldEqual, 1)
		}
		convey.So(math.IsNaN(raster.NoData), convey.ShouldBeTrue)
	})
}
