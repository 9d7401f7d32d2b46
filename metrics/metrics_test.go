package metrics

import (
	"context"
	"testing"
	"time"

	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"
	"go.uber.org/zap"
	"go.viam.com/test"

	"go.viam.com/detectdemo/logging"
)

func TestSummaryReport(t *testing.T) {
	s := NewSummary()
	for _, d := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond} {
		s.StageDuration(StageInference, d)
	}
	s.StageDuration(StageFeatureExtraction, 4*time.Millisecond)
	s.ItemEnqueued()
	s.ItemEnqueued()
	s.ItemDelivered()
	s.QueueDepth(3)
	s.QueueDepth(1)

	test.That(t, s.Enqueued(), test.ShouldEqual, int64(2))
	test.That(t, s.Delivered(), test.ShouldEqual, int64(1))
	test.That(t, s.MaxQueueDepth(), test.ShouldEqual, 3)

	reports, err := s.Report()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reports, test.ShouldHaveLength, 2)
	test.That(t, reports[0].Stage, test.ShouldEqual, StageFeatureExtraction)
	test.That(t, reports[0].Count, test.ShouldEqual, 1)
	test.That(t, reports[0].Max, test.ShouldAlmostEqual, 4.0)

	inference := reports[1]
	test.That(t, inference.Stage, test.ShouldEqual, StageInference)
	test.That(t, inference.Count, test.ShouldEqual, 3)
	test.That(t, inference.Total, test.ShouldAlmostEqual, 60.0)
	test.That(t, inference.Mean, test.ShouldAlmostEqual, 20.0)
	test.That(t, inference.Max, test.ShouldAlmostEqual, 30.0)

	logger, observed := logging.NewObservedTestLogger(t)
	s.Log(logger)
	test.That(t, observed.FilterMessage("stage timing").Len(), test.ShouldEqual, 2)
}

func TestTimerStopsOnce(t *testing.T) {
	s := NewSummary()
	timer := StartTimer(s, StageSink)
	timer.Stop()
	timer.Stop()
	reports, err := s.Report()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reports, test.ShouldHaveLength, 1)
	test.That(t, reports[0].Count, test.ShouldEqual, 1)

	// nil recorders are tolerated.
	StartTimer(nil, StageSink).Stop()
}

func TestMulti(t *testing.T) {
	a, b := NewSummary(), NewSummary()
	m := Multi(a, b, Noop{})
	m.ItemEnqueued()
	m.ItemDelivered()
	m.QueueDepth(2)
	m.StageDuration(StagePostFilter, time.Millisecond)
	for _, s := range []*Summary{a, b} {
		test.That(t, s.Enqueued(), test.ShouldEqual, int64(1))
		test.That(t, s.Delivered(), test.ShouldEqual, int64(1))
		test.That(t, s.MaxQueueDepth(), test.ShouldEqual, 2)
	}
}

func TestOpenCensusRecorder(t *testing.T) {
	unregister, err := RegisterViews()
	test.That(t, err, test.ShouldBeNil)
	defer unregister()

	oc := NewOpenCensus(context.Background())
	oc.ItemEnqueued()
	oc.ItemEnqueued()
	oc.ItemDelivered()
	oc.QueueDepth(5)
	oc.StageDuration(StageInference, 12*time.Millisecond)

	rows, err := view.RetrieveData(ItemsEnqueuedView.Name)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows, test.ShouldHaveLength, 1)
	test.That(t, rows[0].Data.(*view.CountData).Value, test.ShouldEqual, int64(2))

	rows, err = view.RetrieveData(StageLatencyView.Name)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows, test.ShouldHaveLength, 1)
	test.That(t, rows[0].Tags[0].Value, test.ShouldEqual, string(StageInference))
	test.That(t, rows[0].Data.(*view.DistributionData).Count, test.ShouldEqual, int64(1))
}

func TestLoggingExporter(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	unregister, err := RegisterViews()
	test.That(t, err, test.ShouldBeNil)
	defer unregister()
	stop := EnableLoggingExport(logger)

	ctx, span := trace.StartSpan(context.Background(), "pipeline::test")
	oc := NewOpenCensus(ctx)
	oc.ItemEnqueued()
	oc.StageDuration(StageSink, 3*time.Millisecond)
	span.End()
	stop()

	spans := observed.FilterMessage("span").All()
	test.That(t, spans, test.ShouldHaveLength, 1)
	test.That(t, spans[0].ContextMap()["name"], test.ShouldEqual, "pipeline::test")

	metricRows := observed.FilterMessage("metric")
	test.That(t, metricRows.FilterField(zap.String("view", ItemsEnqueuedView.Name)).Len(), test.ShouldBeGreaterThanOrEqualTo, 1)
	sinkRows := metricRows.FilterField(zap.String("tags", "stage="+string(StageSink)))
	test.That(t, sinkRows.Len(), test.ShouldBeGreaterThanOrEqualTo, 1)
}
