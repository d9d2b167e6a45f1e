package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := NewManager()

		Convey("When a render is observed", func() {
			m.ObserveRender("all", 3, 40*time.Millisecond)
			m.ObserveRender("all", 3, 60*time.Millisecond)
			m.ObserveRender("recent", 2, 10*time.Millisecond)

			Convey("Then renders are counted per view", func() {
				So(testutil.ToFloat64(m.chartsRendered.WithLabelValues("all")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.chartsRendered.WithLabelValues("recent")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.historyUsers), ShouldEqual, 2)
				So(testutil.ToFloat64(m.lastRenderUnix), ShouldBeGreaterThan, 0)
			})

			Convey("Then durations land in the histogram", func() {
				So(testutil.CollectAndCount(m.renderDuration), ShouldEqual, 2)
			})
		})

		Convey("When errors and posts are recorded", func() {
			m.RecordError("render")
			m.RecordError("render")
			m.RecordError("post")
			m.RecordPost("dry_run")
			m.RecordHTTPRequest("/chart.png", "200")

			Convey("Then each label is counted separately", func() {
				So(testutil.ToFloat64(m.renderErrors.WithLabelValues("render")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.renderErrors.WithLabelValues("post")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.postsPublished.WithLabelValues("dry_run")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/chart.png", "200")), ShouldEqual, 1)
			})
		})

		Convey("Then metrics are gathered from its own registry with the namespace", func() {
			m.RecordPost("posted")
			families, err := m.Registry().Gather()
			So(err, ShouldBeNil)

			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["ratingchart_posts_total"], ShouldBeTrue)
			So(names["go_goroutines"], ShouldBeFalse)
		})
	})

	Convey("Given custom options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithNamespace("test"), WithHistogramBuckets([]float64{1}), WithRegistry(registry))

		Convey("Then metrics use them", func() {
			So(m.Registry(), ShouldEqual, registry)
			m.RecordError("load")
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			So(families[0].GetName()[:5], ShouldEqual, "test_")
		})
	})
}
