// Package metrics defines the Recorder that pipeline components report timings and counts to.
// A Recorder is always passed in explicitly; there is no package level accumulator.
package metrics

import (
	"sync"
	"time"
)

// Stage names a timed step of the pipeline.
type Stage string

// The stages the pipeline reports.
const (
	StageSource            Stage = "source"
	StageFeatureExtraction Stage = "feature_extraction"
	StageInference         Stage = "inference"
	StagePostFilter        Stage = "post_filter"
	StageEnqueue           Stage = "enqueue"
	StageSink              Stage = "sink"
)

// Recorder receives pipeline measurements. Implementations must be safe for concurrent use since
// the producer and the consumer report from different goroutines.
type Recorder interface {
	ItemEnqueued()
	ItemDelivered()
	QueueDepth(depth int)
	StageDuration(stage Stage, d time.Duration)
}

// Noop is a Recorder that discards everything.
type Noop struct{}

// ItemEnqueued does nothing.
func (Noop) ItemEnqueued() {}

// ItemDelivered does nothing.
func (Noop) ItemDelivered() {}

// QueueDepth does nothing.
func (Noop) QueueDepth(int) {}

// StageDuration does nothing.
func (Noop) StageDuration(Stage, time.Duration) {}

// OrNoop returns r, or a Noop recorder if r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}

type multi []Recorder

// Multi returns a Recorder that forwards every measurement to each of the recorders.
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}

func (m multi) ItemEnqueued() {
	for _, r := range m {
		r.ItemEnqueued()
	}
}

func (m multi) ItemDelivered() {
	for _, r := range m {
		r.ItemDelivered()
	}
}

func (m multi) QueueDepth(depth int) {
	for _, r := range m {
		r.QueueDepth(depth)
	}
}

func (m multi) StageDuration(stage Stage, d time.Duration) {
	for _, r := range m {
		r.StageDuration(stage, d)
	}
}

// Timer measures a single stage. Use as `defer metrics.StartTimer(rec, stage).Stop()`.
type Timer struct {
	recorder Recorder
	stage    Stage
	start    time.Time
	once     sync.Once
}

// StartTimer starts timing stage.
func StartTimer(recorder Recorder, stage Stage) *Timer {
	return &Timer{recorder: OrNoop(recorder), stage: stage, start: time.Now()}
}

// Stop records the elapsed time. Only the first call has an effect.
func (t *Timer) Stop() {
	t.once.Do(func() {
		t.recorder.StageDuration(t.stage, time.Since(t.start))
	})
}
