// Package demo wires a detection run together from a config: a directory of images flows
// through feature extraction, a detection engine and the post-filter into a display.
package demo

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gorgonia.org/tensor"

	"go.viam.com/detectdemo/config"
	"go.viam.com/detectdemo/dataset"
	"go.viam.com/detectdemo/display"
	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/metrics"
	"go.viam.com/detectdemo/ml"
	"go.viam.com/detectdemo/ml/inference"
	"go.viam.com/detectdemo/pipeline"
	"go.viam.com/detectdemo/vision/objectdetection"
)

// Result summarizes a finished run.
type Result struct {
	RunID     string
	State     pipeline.State
	Enqueued  int64
	Delivered int64
	Stages    []metrics.StageReport
}

// Option changes how Run builds the pipeline.
type Option func(*options)

type options struct {
	tableOut  io.Writer
	closeHook func()
	recorder  metrics.Recorder
	engine    inference.Engine
	observer  func(pipeline.State)
}

// WithTableWriter sets where the table display prints.
func WithTableWriter(w io.Writer) Option {
	return func(o *options) {
		o.tableOut = w
	}
}

// WithCloseHook sets a function called exactly once when the run ends.
func WithCloseHook(hook func()) Option {
	return func(o *options) {
		o.closeHook = hook
	}
}

// WithRecorder adds a metrics recorder next to the run's own summary.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

// WithEngine replaces the blob engine. The engine is closed when the run ends.
func WithEngine(engine inference.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithStateObserver is told about every pipeline state change.
func WithStateObserver(observer func(pipeline.State)) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// Run validates cfg, runs the pipeline over every image and logs a timing report. The result
// is returned even when the run fails.
func Run(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (res *Result, err error) {
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	res = &Result{RunID: runID, State: pipeline.StateIdle}
	logger.Infow("starting detection run", "run", runID, "images", cfg.ImagesDir, "display", cfg.Display)

	var labels objectdetection.LabelTable
	if cfg.LabelsPath != "" {
		if labels, err = objectdetection.LoadLabels(cfg.LabelsPath); err != nil {
			return res, err
		}
	}

	src, err := dataset.NewDirectorySource(cfg.ImagesDir, dataset.Options{
		BatchSize:     cfg.BatchSize,
		Width:         cfg.InputWidth,
		Height:        cfg.InputHeight,
		DecodeWorkers: cfg.DecodeWorkers,
	}, logger.Sublogger("dataset"))
	if err != nil {
		return res, err
	}

	engine := o.engine
	if engine == nil {
		engine = inference.NewBlobEngine(inference.BlobConfig{
			Threshold: cfg.BlobThreshold,
			MinPixels: cfg.BlobMinPixels,
		}, logger.Sublogger("engine"))
	}
	defer func() {
		err = multierr.Combine(err, errors.Wrap(engine.Close(ctx), "failed to close engine"))
	}()

	summary := metrics.NewSummary()
	recorder := metrics.Multi(summary, metrics.NewOpenCensus(ctx), metrics.OrNoop(o.recorder))

	postFilter := objectdetection.NewPostFilter(cfg.ScoreThreshold, cfg.OverlapThreshold, cfg.MinArea)
	stream, err := pipeline.NewBatchStream(
		src,
		ml.NewImageFeatureExtractor(cfg.InputWidth, cfg.InputHeight),
		inference.BatchFunc(engine),
		pipeline.PostFilter[[]objectdetection.Detection, []objectdetection.Detection](postFilter),
		logger.Sublogger("producer"),
		pipeline.WithStreamMetrics(recorder),
	)
	if err != nil {
		return res, err
	}

	kind, err := display.ParseKind(cfg.Display)
	if err != nil {
		return res, err
	}
	open, err := display.NewOpener(display.Config{
		Kind:      kind,
		Labels:    labels,
		OutputDir: cfg.OutputDir,
		RunID:     runID,
		Writer:    o.tableOut,
		Pacer:     display.FixedPacer(cfg.FramePace),
	}, logger.Sublogger("display"))
	if err != nil {
		return res, err
	}

	lcOpts := []pipeline.LifecycleOption{pipeline.WithLifecycleMetrics(recorder)}
	if o.closeHook != nil {
		lcOpts = append(lcOpts, pipeline.WithCloseHook(o.closeHook))
	}
	if o.observer != nil {
		lcOpts = append(lcOpts, pipeline.WithStateObserver(o.observer))
	}
	lc, err := pipeline.NewLifecycle[dataset.Frame, []objectdetection.Detection](
		pipeline.LifecycleConfig{Capacity: cfg.QueueCapacity, IdleTimeout: time.Duration(cfg.IdleTimeout)},
		open,
		stream,
		logger,
		lcOpts...,
	)
	if err != nil {
		return res, err
	}

	runErr := lc.Run(ctx)
	res.State = lc.State()
	res.Enqueued = summary.Enqueued()
	res.Delivered = summary.Delivered()
	if stages, reportErr := summary.Report(); reportErr == nil {
		res.Stages = stages
	}
	summary.Log(logger)
	return res, runErr
}

type detectionStream = pipeline.BatchStream[
	image.Image, dataset.Frame, *tensor.Dense, []objectdetection.Detection, []objectdetection.Detection,
]

var (
	_ pipeline.Source[image.Image, dataset.Frame]                   = (*dataset.DirectorySource)(nil)
	_ pipeline.Producer[dataset.Frame, []objectdetection.Detection] = (*detectionStream)(nil)
	_ display.Sink                                                  = (*display.FrameDisplay)(nil)
	_ display.Sink                                                  = (*display.TableDisplay)(nil)
	_ display.Sink                                                  = (*display.LogDisplay)(nil)
)
