package pipeline_test

import (
	"testing"

	"github.com/forest-guardian/geocomposite/internal/datasets"
	"github.com/forest-guardian/geocomposite/internal/pipeline"
	"github.com/smartystreets/goconvey/convey"
)

func TestIndex(t *testing.T) {
	convey.Convey("Landsat datasets read common band names", t, func() {
		d := datasets.Landsat8()
		expr, err := pipeline.Index("ndvi", &d)
		convey.So(err, convey.ShouldBeNil)
		convey.So(expr.Inputs, convey.ShouldResemble, []string{"nir", "red"})
	})

	convey.Convey("Sentinel-2 datasets read band numbers", t, func() {
		d := datasets.Sentinel2SR()
		expr, err := pipeline.Index("NDRE", &d)
		convey.So(err, convey.ShouldBeNil)
		convey.So(expr.Inputs, convey.ShouldResemble, []string{"B8", "B5"})
	})

	convey.Convey("NDTI reads red and green for both band namings", t, func() {
		l8 := datasets.Landsat8()
		expr, err := pipeline.Index("NDTI", &l8)
		convey.So(err, convey.ShouldBeNil)
		convey.So(expr.Inputs, convey.ShouldResemble, []string{"red", "green"})

		s2 := datasets.Sentinel2SR()
		expr, err = pipeline.Index("ndti", &s2)
		convey.So(err, convey.ShouldBeNil)
		convey.So(expr.Inputs, convey.ShouldResemble, []string{"B4", "B3"})
	})

	convey.Convey("Unknown names list the known ones", t, func() {
		d := datasets.Landsat8()
		_, err := pipeline.Index("NDRE", &d)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "EVI, NDMI, NDTI, NDVI")
	})
}
