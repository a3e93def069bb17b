package datasets_test

import (
	"errors"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/quality"
	"github.com/forest-guardian/geocomposite/internal/raster"
	"github.com/forest-guardian/geocomposite/internal/source"
	"github.com/smartystreets/goconvey/convey"
)

func TestLandsatForYear(t *testing.T) {
	convey.Convey("Scenes before 2012 use the Landsat 5 band layout", t, func() {
		d := datasets.LandsatForYear(2011)
		convey.So(d.ID, convey.ShouldEqual, "LANDSAT/LT05/C02/T1_L2")
		convey.So(d.Aliases["SR_B3"], convey.ShouldEqual, "red")
		convey.So(d.Aliases["SR_B4"], convey.ShouldEqual, "nir")
	})

	convey.Convey("Later scenes use Landsat 8", t, func() {
		d := datasets.LandsatForYear(2012)
		convey.So(d.ID, convey.ShouldEqual, "LANDSAT/LC08/C02/T1_L2")
		convey.So(d.Aliases["SR_B4"], convey.ShouldEqual, "red")
		convey.So(d.Aliases["SR_B5"], convey.ShouldEqual, "nir")
	})
}

func TestPrepare(t *testing.T) {
	convey.Convey("Given a Landsat 8 scene with one cloudy pixel", t, func() {
		grid := raster.NorthUp(2, 1, 0, 0, 30, 30, "EPSG:32722")
		r, err := raster.New(grid,
			raster.Band{Name: "SR_B4", Data: []float64{10000, 20000}},
			raster.Band{Name: "ST_B10", Data: []float64{40000, 40000}},
			raster.Band{Name: "QA_PIXEL", Data: []float64{21824, 21824 | 1<<3}},
			raster.Band{Name: "QA_RADSAT", Data: []float64{0, 0}},
		)
		convey.So(err, convey.ShouldBeNil)

		out, err := datasets.Landsat8().Prepare(r)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then present bands are scaled and renamed", func() {
			convey.So(out.HasBand("SR_B4"), convey.ShouldBeFalse)
			convey.So(out.At("red", 0, 0), convey.ShouldAlmostEqual, 10000*0.0000275-0.2, 1e-12)
			convey.So(out.At("thermal", 0, 0), convey.ShouldAlmostEqual, 40000*0.00341802+149, 1e-9)
		})

		convey.Convey("And the cloudy pixel is no-data", func() {
			convey.So(raster.IsNoData(out.At("red", 1, 0)), convey.ShouldBeTrue)
			convey.So(raster.IsNoData(out.At("thermal", 1, 0)), convey.ShouldBeTrue)
		})
	})

	convey.Convey("A scene without quality bands is rejected", t, func() {
		grid := raster.NorthUp(1, 1, 0, 0, 30, 30, "")
		_, err := datasets.Landsat8().Prepare(raster.Filled(grid, 1, "SR_B4"))
		convey.So(errors.Is(err, raster.ErrMissingBand), convey.ShouldBeTrue)
	})

	convey.Convey("ERA5-Land temperatures are converted to Celsius", t, func() {
		grid := raster.NorthUp(1, 1, 0, 0, 0.1, 0.1, "EPSG:4326")
		out, err := datasets.ERA5Land().Prepare(raster.Filled(grid, 300, "temperature_2m"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.At("temperature_2m", 0, 0), convey.ShouldAlmostEqual, 26.85, 1e-9)
	})

	convey.Convey("MODIS land surface temperature is scaled and renamed", t, func() {
		grid := raster.NorthUp(1, 1, 0, 0, 1000, 1000, "")
		out, err := datasets.ModisLST().Prepare(raster.Filled(grid, 15000, "LST_Day_1km"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.At("lst", 0, 0), convey.ShouldAlmostEqual, 26.85, 1e-9)
	})
}

func TestSentinel2(t *testing.T) {
	convey.Convey("Probability masks need distinct cloud and cirrus bands", t, func() {
		_, err := datasets.Sentinel2Probability("MSK_CLDPRB", "MSK_CLDPRB", 20)
		convey.So(errors.Is(err, quality.ErrDuplicateMaskBand), convey.ShouldBeTrue)
	})

	convey.Convey("The scene filter drops cloudy acquisitions", t, func() {
		d := datasets.Sentinel2SR()
		convey.So(d.Filter(source.Scene{Metadata: map[string]float64{"CLOUD_COVER": 35}}), convey.ShouldBeFalse)
		convey.So(d.Filter(source.Scene{Metadata: map[string]float64{"CLOUD_COVER": 5}}), convey.ShouldBeTrue)
	})
}

func TestByID(t *testing.T) {
	convey.Convey("Presets are looked up by collection ID", t, func() {
		d, ok := datasets.ByID("IDAHO_EPSCOR/TERRACLIMATE")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(d.Scales["pdsi"].Multiplier, convey.ShouldEqual, 0.01)

		_, ok = datasets.ByID("nope")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestSentinel2Aliases(t *testing.T) {
	convey.Convey("Copernicus band names are shortened for the index presets", t, func() {
		grid := raster.NorthUp(1, 1, 0, 0, 10, 10, "")
		r, err := raster.New(grid,
			raster.Band{Name: "B04", Data: []float64{0.1}},
			raster.Band{Name: "B08", Data: []float64{0.5}},
			raster.Band{Name: "CLD", Data: []float64{0}},
			raster.Band{Name: "SCL", Data: []float64{4}},
		)
		convey.So(err, convey.ShouldBeNil)
		out, err := datasets.Sentinel2SR().Prepare(r)
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.At("B4", 0, 0), convey.ShouldEqual, 0.1)
		convey.So(out.At("B8", 0, 0), convey.ShouldEqual, 0.5)
	})
}
