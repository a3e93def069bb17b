package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	convey.Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithRegistry(reg), metrics.WithNamespace("test"))

		m.SceneFetched("landsat8")
		m.SceneFetched("landsat8")
		m.FetchRetried("era5")
		m.CompositesBuilt("mean", 3)
		m.PixelsExported(64)
		m.Stage("composite")()

		convey.Convey("Then counters are registered under the namespace", func() {
			n, err := testutil.GatherAndCount(reg, "test_source_scenes_fetched_total")
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 1)

			n, err = testutil.GatherAndCount(reg, "test_pipeline_stage_duration_seconds")
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 1)
		})

		convey.Convey("Then a textfile dump carries the values", func() {
			path := filepath.Join(t.TempDir(), "geocomposite.prom")
			convey.So(m.WriteTextfile(path), convey.ShouldBeNil)
			data, err := os.ReadFile(path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldContainSubstring, `test_source_scenes_fetched_total{dataset="landsat8"} 2`)
			convey.So(string(data), convey.ShouldContainSubstring, `test_composite_built_total{reducer="mean"} 3`)
		})
	})

	convey.Convey("A nil manager records nothing and does not panic", t, func() {
		var m *metrics.Manager
		convey.So(func() {
			m.SceneFetched("x")
			m.Stage("x")()
		}, convey.ShouldNotPanic)
		convey.So(m.WriteTextfile("/nonexistent/file"), convey.ShouldBeNil)
	})
}
