package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/composite"
	"github.com/forest-guardian/geocomposite/internal/region"
	"github.com/paulmach/orb"
	"github.com/smartystreets/goconvey/convey"
)

func TestSeriesRequest(t *testing.T) {
	convey.Convey("Given Landsat 8 flags for a growing season composite", t, func() {
		s := seriesFlags{
			dataset: "LANDSAT/LC08/C02/T1_L2",
			from:    2014,
			to:      2016,
			indices: []string{"NDVI", "EVI"},
			reducer: "max",
			season:  "growing",
		}
		req, err := s.request(regionFixture(t))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the preset, indices and buckets follow the flags", func() {
			convey.So(req.Prepare, convey.ShouldNotBeNil)
			convey.So(req.Indices[0].Inputs, convey.ShouldResemble, []string{"nir", "red"})
			convey.So(req.Reducer.Name(), convey.ShouldEqual, "max")
			convey.So(req.Rule.Buckets(), convey.ShouldHaveLength, 3)
			convey.So(req.Filter, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Lower case index names resolve to the computed band", t, func() {
		s := seriesFlags{
			dataset: "COPERNICUS/S2_SR",
			from:    2020,
			to:      2021,
			indices: []string{"ndvi"},
			reducer: "mean",
			season:  "yearly",
		}
		req, err := s.request(regionFixture(t))
		convey.So(err, convey.ShouldBeNil)
		convey.So(req.Indices[0].Output, convey.ShouldEqual, "NDVI")
	})

	convey.Convey("A request without indices is rejected", t, func() {
		s := seriesFlags{dataset: "x", from: 2014, to: 2016, reducer: "mean", season: "yearly"}
		_, err := s.request(regionFixture(t))
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Reversed years are rejected", t, func() {
		s := seriesFlags{dataset: "x", from: 2016, to: 2014, reducer: "mean", season: "yearly"}
		_, err := s.request(regionFixture(t))
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Unknown reducers are rejected", t, func() {
		s := seriesFlags{dataset: "x", from: 2016, to: 2016, reducer: "mode", season: "yearly"}
		_, err := s.request(regionFixture(t))
		convey.So(errors.Is(err, composite.ErrUnknownReducer), convey.ShouldBeTrue)
	})
}

func TestAreaFlags(t *testing.T) {
	convey.Convey("A point and buffer make a region around the point", t, func() {
		a := areaFlags{lon: -47.9, lat: -15.8, buffer: 500}
		r, err := a.region()
		convey.So(err, convey.ShouldBeNil)
		convey.So(r.AreaSquareMeters(), convey.ShouldAlmostEqual, 3.14159*500*500, 5000)
		convey.So(a.label(), convey.ShouldEqual, "m47_9000_m15_8000")
	})

	convey.Convey("Plots are looked up by plot_id", t, func() {
		path := filepath.Join(t.TempDir(), "plots.geojson")
		err := os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"plot_id":"p1"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`), 0o644)
		convey.So(err, convey.ShouldBeNil)
		a := areaFlags{plots: path, plotID: "p1"}
		r, err := a.region()
		convey.So(err, convey.ShouldBeNil)
		convey.So(r.IsZero(), convey.ShouldBeFalse)
		convey.So(a.label(), convey.ShouldEqual, "p1")
	})

	convey.Convey("No area at all is an error", t, func() {
		_, err := (&areaFlags{}).region()
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func regionFixture(t *testing.T) region.Region {
	t.Helper()
	r, err := region.FromGeometry(orb.Bound{Min: orb.Point{-48, -16}, Max: orb.Point{-47.9, -15.9}})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestChangeName(t *testing.T) {
	convey.Convey("Change outputs are named after the area, mode and period", t, func() {
		convey.So(changeName("plot", "zscore", "2016"), convey.ShouldEqual, "plot_zscore_2016")
	})

	convey.Convey("Series-wide modes carry no period", t, func() {
		convey.So(changeName("plot", "mean", ""), convey.ShouldEqual, "plot_mean")
		convey.So(changeName("plot", "stddev", ""), convey.ShouldEqual, "plot_stddev")
	})
}
