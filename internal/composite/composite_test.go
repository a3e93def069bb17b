package composite_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/logging"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/smartystreets/goconvey/convey"
)

var grid = raster.NorthUp(2, 2, 500000, 4000000, 30, 30, "EPSG:32631")

func at(year int, month time.Month, values ...float64) raster.Timed {
	r, _ := raster.New(grid, raster.Band{Name: "NDVI", Data: values})
	return raster.Timed{Time: time.Date(year, month, 15, 10, 0, 0, 0, time.UTC), Raster: r}
}

func allNoData(r *raster.Raster, band string) bool {
	data, err := r.Band(band)
	if err != nil {
		return false
	}
	for _, v := range data {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func TestComposeYearly(t *testing.T) {
	series := raster.Series{
		at(2014, time.March, 0.1, 0.2, 0.3, 0.4),
		at(2015, time.June, 0.2, 0.4, raster.NoData, 0.8),
		at(2015, time.June, 0.4, 0.6, 0.5, raster.NoData),
		at(2016, time.September, 0.9, 0.9, 0.9, 0.9),
	}
	ctx := context.Background()
	quiet := composite.WithLogger(logging.Discard())

	convey.Convey("Given rasters from 2014 to 2016", t, func() {
		out, err := composite.Compose(ctx, series, composite.Yearly(2014, 2016), composite.Mean, quiet)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then there is one composite per year tagged with its start", func() {
			convey.So(len(out), convey.ShouldEqual, 3)
			convey.So(out[0].Bucket.Start, convey.ShouldEqual, time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC))
			convey.So(out[1].Count, convey.ShouldEqual, 2)
		})

		convey.Convey("Then 2015 is the per-pixel mean of its valid inputs", func() {
			r := out[1].Raster
			convey.So(r.At("NDVI", 0, 0), convey.ShouldAlmostEqual, 0.3, 1e-12)
			convey.So(r.At("NDVI", 1, 0), convey.ShouldAlmostEqual, 0.5, 1e-12)
			convey.So(r.At("NDVI", 0, 1), convey.ShouldEqual, 0.5)
			convey.So(r.At("NDVI", 1, 1), convey.ShouldEqual, 0.8)
		})
	})

	convey.Convey("Given a request that starts before the data", t, func() {
		out, err := composite.Compose(ctx, series, composite.Yearly(2013, 2016), composite.Mean, quiet)
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(out), convey.ShouldEqual, 4)

		convey.Convey("Then the empty 2013 bucket is an all no-data raster", func() {
			c, ok := out.FindLabel("2013")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(c.Count, convey.ShouldEqual, 0)
			convey.So(c.Raster.Grid().Equal(grid), convey.ShouldBeTrue)
			convey.So(allNoData(c.Raster, "NDVI"), convey.ShouldBeTrue)
		})
	})
}

func TestComposeReducers(t *testing.T) {
	series := raster.Series{
		at(2020, time.May, 1, 1, 1, 1),
		at(2020, time.June, 4, 2, 2, 2),
		at(2020, time.July, 2, 3, 3, 3),
		at(2020, time.August, 3, 10, 4, raster.NoData),
	}

	convey.Convey("Median averages the two middle values of an even count", t, func() {
		out, err := composite.Compose(context.Background(), series, composite.Yearly(2020, 2020), composite.Median, composite.WithLogger(logging.Discard()))
		convey.So(err, convey.ShouldBeNil)
		r := out[0].Raster
		convey.So(r.At("NDVI", 0, 0), convey.ShouldEqual, 2.5)
		convey.So(r.At("NDVI", 1, 0), convey.ShouldEqual, 2.5)
		convey.So(r.At("NDVI", 1, 1), convey.ShouldEqual, 2)
	})

	convey.Convey("The growing season excludes scenes outside May 1 to September 15", t, func() {
		late := at(2020, time.October, 100, 100, 100, 100)
		out, err := composite.Compose(context.Background(), append(series, late), composite.GrowingSeason(2020, 2020), composite.Max, composite.WithLogger(logging.Discard()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(out[0].Count, convey.ShouldEqual, 4)
		convey.So(out[0].Raster.At("NDVI", 1, 0), convey.ShouldEqual, 10)
	})

	convey.Convey("The growing season ends before September 15", t, func() {
		day := func(d int, v float64) raster.Timed {
			r := raster.Filled(grid, v, "NDVI")
			return raster.Timed{Time: time.Date(2021, time.September, d, 12, 0, 0, 0, time.UTC), Raster: r}
		}
		out, err := composite.Compose(context.Background(), raster.Series{day(14, 1), day(15, 9)}, composite.GrowingSeason(2021, 2021), composite.Max, composite.WithLogger(logging.Discard()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(out[0].Bucket.End, convey.ShouldEqual, time.Date(2021, time.September, 15, 0, 0, 0, 0, time.UTC))
		convey.So(out[0].Count, convey.ShouldEqual, 1)
		convey.So(out[0].Raster.At("NDVI", 0, 0), convey.ShouldEqual, 1)
	})

	convey.Convey("Reducers resolve by name", t, func() {
		r, err := composite.ReducerByName("MEDIAN")
		convey.So(err, convey.ShouldBeNil)
		convey.So(r.Name(), convey.ShouldEqual, "median")
		_, err = composite.ReducerByName("mode")
		convey.So(errors.Is(err, composite.ErrUnknownReducer), convey.ShouldBeTrue)
	})
}

func TestComposeEdges(t *testing.T) {
	ctx := context.Background()

	convey.Convey("An empty series needs a template grid", t, func() {
		_, err := composite.Compose(ctx, nil, composite.Yearly(2020, 2021), composite.Mean)
		convey.So(errors.Is(err, composite.ErrEmptySeries), convey.ShouldBeTrue)

		out, err := composite.Compose(ctx, nil, composite.Yearly(2020, 2021), composite.Mean,
			composite.WithTemplate(grid), composite.WithBands("NDVI"), composite.WithLogger(logging.Discard()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(out), convey.ShouldEqual, 2)
		convey.So(allNoData(out[1].Raster, "NDVI"), convey.ShouldBeTrue)
	})

	convey.Convey("A series of fully masked rasters composes to no-data", t, func() {
		series := raster.Series{
			at(2018, time.April, raster.NoData, raster.NoData, raster.NoData, raster.NoData),
			at(2018, time.May, raster.NoData, raster.NoData, raster.NoData, raster.NoData),
		}
		out, err := composite.Compose(ctx, series, composite.Yearly(2018, 2018), composite.Mean, composite.WithLogger(logging.Discard()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(allNoData(out[0].Raster, "NDVI"), convey.ShouldBeTrue)
	})

	convey.Convey("Rasters on different grids are rejected", t, func() {
		other, _ := raster.New(raster.NorthUp(2, 2, 0, 0, 10, 10, ""), raster.Band{Name: "NDVI", Data: []float64{1, 2, 3, 4}})
		series := raster.Series{at(2018, time.April, 1, 2, 3, 4), {Time: time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC), Raster: other}}
		_, err := composite.Compose(ctx, series, composite.Yearly(2018, 2018), composite.Mean)
		convey.So(errors.Is(err, raster.ErrGridMismatch), convey.ShouldBeTrue)
	})

	convey.Convey("A cancelled context stops composing", t, func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := composite.Compose(cancelled, raster.Series{at(2018, time.April, 1, 2, 3, 4)}, composite.Yearly(2018, 2019), composite.Mean)
		convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
	})
}
