package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/atomic"

	"go.viam.com/detectdemo/logging"
)

// Summary is an in-memory Recorder that keeps every stage duration so a report with latency
// percentiles can be produced at the end of a run.
type Summary struct {
	enqueued  atomic.Int64
	delivered atomic.Int64
	maxDepth  atomic.Int64

	mu        sync.Mutex
	durations map[Stage][]float64
}

// StageReport holds the aggregated latencies of one stage, in milliseconds.
type StageReport struct {
	Stage Stage
	Count int
	Total float64
	Mean  float64
	P50   float64
	P95   float64
	Max   float64
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{durations: map[Stage][]float64{}}
}

// ItemEnqueued counts an enqueued item.
func (s *Summary) ItemEnqueued() {
	s.enqueued.Inc()
}

// ItemDelivered counts a delivered item.
func (s *Summary) ItemDelivered() {
	s.delivered.Inc()
}

// QueueDepth tracks the highest observed queue depth.
func (s *Summary) QueueDepth(depth int) {
	for {
		cur := s.maxDepth.Load()
		if int64(depth) <= cur || s.maxDepth.CompareAndSwap(cur, int64(depth)) {
			return
		}
	}
}

// StageDuration keeps d for stage.
func (s *Summary) StageDuration(stage Stage, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[stage] = append(s.durations[stage], float64(d)/float64(time.Millisecond))
}

// Enqueued returns the number of enqueued items.
func (s *Summary) Enqueued() int64 {
	return s.enqueued.Load()
}

// Delivered returns the number of delivered items.
func (s *Summary) Delivered() int64 {
	return s.delivered.Load()
}

// MaxQueueDepth returns the highest queue depth reported.
func (s *Summary) MaxQueueDepth() int {
	return int(s.maxDepth.Load())
}

// Report aggregates the recorded durations, one entry per stage sorted by stage name.
func (s *Summary) Report() ([]StageReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]StageReport, 0, len(s.durations))
	for stage, samples := range s.durations {
		data := stats.Float64Data(samples)
		total, err := data.Sum()
		if err != nil {
			return nil, err
		}
		mean, err := data.Mean()
		if err != nil {
			return nil, err
		}
		p50, err := data.Percentile(50)
		if err != nil {
			return nil, err
		}
		p95, err := data.Percentile(95)
		if err != nil {
			return nil, err
		}
		maxVal, err := data.Max()
		if err != nil {
			return nil, err
		}
		reports = append(reports, StageReport{
			Stage: stage,
			Count: len(samples),
			Total: total,
			Mean:  mean,
			P50:   p50,
			P95:   p95,
			Max:   maxVal,
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Stage < reports[j].Stage })
	return reports, nil
}

// Log writes the report to logger.
func (s *Summary) Log(logger logging.Logger) {
	reports, err := s.Report()
	if err != nil {
		logger.Warnw("could not build timing report", "error", err)
		return
	}
	logger.Infow("pipeline totals",
		"enqueued", s.Enqueued(), "delivered", s.Delivered(), "max_queue_depth", s.MaxQueueDepth())
	for _, r := range reports {
		logger.Infow("stage timing",
			"stage", string(r.Stage), "count", r.Count, "total_ms", r.Total,
			"mean_ms", r.Mean, "p50_ms", r.P50, "p95_ms", r.P95, "max_ms", r.Max)
	}
}
