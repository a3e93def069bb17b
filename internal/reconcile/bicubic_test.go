package reconcile_test

import (
	"errors"
	"math"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/reconcile"
	"github.com/smartystreets/goconvey/convey"
)

var (
	coarseGrid = raster.NorthUp(8, 8, 0, 32, 4, 4, "EPSG:32631")
	fineGrid   = raster.NorthUp(32, 32, 0, 32, 1, 1, "EPSG:32631")
)

func ramp(t *testing.T) *raster.Raster {
	t.Helper()
	data := make([]float64, coarseGrid.Size())
	for y := 0; y < coarseGrid.Height; y++ {
		for x := 0; x < coarseGrid.Width; x++ {
			data[y*coarseGrid.Width+x] = 10 + 2*float64(x)
		}
	}
	r, err := raster.New(coarseGrid, raster.Band{Name: "t2m", Data: data})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

type shift struct{ dx, dy float64 }

func (s shift) Transform(xs, ys []float64) error {
	for i := range xs {
		xs[i] += s.dx
		ys[i] += s.dy
	}
	return nil
}

func TestBicubic(t *testing.T) {
	convey.Convey("Given a constant coarse raster", t, func() {
		coarse := raster.Filled(coarseGrid, 21.5, "t2m")
		fine, err := reconcile.Bicubic(coarse, fineGrid)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then every fine pixel holds the constant", func() {
			convey.So(fine.Grid().Equal(fineGrid), convey.ShouldBeTrue)
			data, _ := fine.Band("t2m")
			for _, v := range data {
				convey.So(v, convey.ShouldAlmostEqual, 21.5, 1e-9)
			}
		})
	})

	convey.Convey("Given a linear ramp resampled down and back", t, func() {
		coarse := ramp(t)
		fine, err := reconcile.Bicubic(coarse, fineGrid)
		convey.So(err, convey.ShouldBeNil)
		back, err := reconcile.Bicubic(fine, coarseGrid)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the shape and extent are preserved", func() {
			convey.So(back.Grid().Equal(coarseGrid), convey.ShouldBeTrue)
		})

		convey.Convey("Then interior coarse values survive the round trip", func() {
			for y := 0; y < coarseGrid.Height; y++ {
				for x := 2; x <= 5; x++ {
					convey.So(back.At("t2m", x, y), convey.ShouldAlmostEqual, coarse.At("t2m", x, y), 1e-9)
				}
			}
		})

		convey.Convey("Then the fine ramp is linear away from the edges", func() {
			convey.So(fine.At("t2m", 14, 3), convey.ShouldAlmostEqual, 10+2*(14.5/4-0.5), 1e-9)
		})
	})

	convey.Convey("A no-data neighbour falls back to the nearest coarse pixel", t, func() {
		data := make([]float64, coarseGrid.Size())
		for i := range data {
			data[i] = 5
		}
		data[3*8+3] = raster.NoData
		data[3*8+4] = 9
		coarse, _ := raster.New(coarseGrid, raster.Band{Name: "t2m", Data: data})
		fine, err := reconcile.Bicubic(coarse, fineGrid)
		convey.So(err, convey.ShouldBeNil)
		convey.So(fine.At("t2m", 17, 13), convey.ShouldEqual, 9)
		convey.So(math.IsNaN(fine.At("t2m", 13, 13)), convey.ShouldBeTrue)
	})

	convey.Convey("Fine pixels outside the coarse extent are no-data", t, func() {
		partial := raster.NorthUp(8, 8, 28, 32, 1, 1, "EPSG:32631")
		fine, err := reconcile.Bicubic(raster.Filled(coarseGrid, 1, "t2m"), partial)
		convey.So(err, convey.ShouldBeNil)
		convey.So(fine.At("t2m", 0, 0), convey.ShouldAlmostEqual, 1, 1e-9)
		convey.So(math.IsNaN(fine.At("t2m", 7, 0)), convey.ShouldBeTrue)
	})

	convey.Convey("Disjoint extents are rejected", t, func() {
		far := raster.NorthUp(4, 4, 1000, 1000, 1, 1, "EPSG:32631")
		_, err := reconcile.Bicubic(ramp(t), far)
		convey.So(errors.Is(err, reconcile.ErrDisjointExtent), convey.ShouldBeTrue)
	})

	convey.Convey("Different projections need a transformer", t, func() {
		other := raster.NorthUp(32, 32, 1000, 1032, 1, 1, "EPSG:4326")
		_, err := reconcile.Bicubic(ramp(t), other)
		convey.So(errors.Is(err, reconcile.ErrProjectionMismatch), convey.ShouldBeTrue)

		fine, err := reconcile.Bicubic(ramp(t), other, reconcile.WithTransformer(shift{dx: -1000, dy: -1000}))
		convey.So(err, convey.ShouldBeNil)
		convey.So(fine.At("t2m", 14, 3), convey.ShouldAlmostEqual, 10+2*(14.5/4-0.5), 1e-9)
	})
}
