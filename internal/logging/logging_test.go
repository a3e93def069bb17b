package logging_test

import (
	"bytes"
	"testing"

	"github.com/forest-guardian/geocomposite/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	convey.Convey("Given a debug logger", t, func() {
		var buf bytes.Buffer
		log, err := logging.New("debug", &buf)
		convey.So(err, convey.ShouldBeNil)
		convey.So(log.GetLevel(), convey.ShouldEqual, logrus.DebugLevel)

		log.WithField("bucket", "2015").Debug("composite built")
		convey.So(buf.String(), convey.ShouldContainSubstring, "bucket=2015")
	})

	convey.Convey("An empty level defaults to info", t, func() {
		log, err := logging.New("", nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(log.GetLevel(), convey.ShouldEqual, logrus.InfoLevel)
	})

	convey.Convey("An unknown level is rejected", t, func() {
		_, err := logging.New("chatty", nil)
		convey.So(err, convey.ShouldNotBeNil)
	})
}
