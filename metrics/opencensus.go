package metrics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	keyStage = tag.MustNewKey("stage")

	measureEnqueued   = stats.Int64("detectdemo/items_enqueued", "items put into the delivery channel", stats.UnitDimensionless)
	measureDelivered  = stats.Int64("detectdemo/items_delivered", "items handed to the sink", stats.UnitDimensionless)
	measureQueueDepth = stats.Int64("detectdemo/queue_depth", "delivery channel occupancy", stats.UnitDimensionless)
	measureStage      = stats.Float64("detectdemo/stage_latency", "time spent in a pipeline stage", stats.UnitMilliseconds)

	// ItemsEnqueuedView counts enqueued items.
	ItemsEnqueuedView = &view.View{
		Name:        "detectdemo/items_enqueued",
		Description: "number of items put into the delivery channel",
		Measure:     measureEnqueued,
		Aggregation: view.Count(),
	}
	// ItemsDeliveredView counts delivered items.
	ItemsDeliveredView = &view.View{
		Name:        "detectdemo/items_delivered",
		Description: "number of items handed to the sink",
		Measure:     measureDelivered,
		Aggregation: view.Count(),
	}
	// QueueDepthView keeps the last observed queue depth.
	QueueDepthView = &view.View{
		Name:        "detectdemo/queue_depth",
		Description: "last observed delivery channel occupancy",
		Measure:     measureQueueDepth,
		Aggregation: view.LastValue(),
	}
	// StageLatencyView is the latency distribution per stage.
	StageLatencyView = &view.View{
		Name:        "detectdemo/stage_latency",
		Description: "latency distribution of each pipeline stage",
		Measure:     measureStage,
		TagKeys:     []tag.Key{keyStage},
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	}
)

// Views returns every view the OpenCensus recorder reports to.
func Views() []*view.View {
	return []*view.View{ItemsEnqueuedView, ItemsDeliveredView, QueueDepthView, StageLatencyView}
}

// OpenCensus is a Recorder backed by OpenCensus measures. Register the Views (or call
// RegisterViews) for the data to be aggregated and exported.
type OpenCensus struct {
	ctx context.Context
}

// NewOpenCensus returns a recorder that records against ctx's tags.
func NewOpenCensus(ctx context.Context) *OpenCensus {
	return &OpenCensus{ctx: ctx}
}

// RegisterViews registers Views with OpenCensus. The returned function unregisters them.
func RegisterViews() (func(), error) {
	views := Views()
	if err := view.Register(views...); err != nil {
		return nil, errors.Wrap(err, "failed to register metric views")
	}
	return func() { view.Unregister(views...) }, nil
}

// ItemEnqueued records an enqueued item.
func (oc *OpenCensus) ItemEnqueued() {
	stats.Record(oc.ctx, measureEnqueued.M(1))
}

// ItemDelivered records a delivered item.
func (oc *OpenCensus) ItemDelivered() {
	stats.Record(oc.ctx, measureDelivered.M(1))
}

// QueueDepth records the queue occupancy.
func (oc *OpenCensus) QueueDepth(depth int) {
	stats.Record(oc.ctx, measureQueueDepth.M(int64(depth)))
}

// StageDuration records d under the stage tag.
func (oc *OpenCensus) StageDuration(stage Stage, d time.Duration) {
	//nolint:errcheck
	stats.RecordWithTags(oc.ctx,
		[]tag.Mutator{tag.Upsert(keyStage, string(stage))},
		measureStage.M(float64(d)/float64(time.Millisecond)))
}
