package pipeline

import (
	"context"
	"io"
	"iter"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/metrics"
	"go.viam.com/detectdemo/utils"
)

// BatchStream is the producing half of the pipeline: source → feature extraction → inference →
// post-filter. Items come out in source order.
type BatchStream[I, P, F, R, O any] struct {
	source  Source[I, P]
	extract FeatureExtractor[I, F]
	infer   InferenceFunc[F, R]
	filter  PostFilter[R, O]
	logger  logging.Logger
	metrics metrics.Recorder
}

// StreamOption configures a BatchStream.
type StreamOption func(*streamOptions)

type streamOptions struct {
	metrics metrics.Recorder
}

// WithStreamMetrics sets the recorder stage durations are reported to.
func WithStreamMetrics(recorder metrics.Recorder) StreamOption {
	return func(o *streamOptions) {
		o.metrics = recorder
	}
}

// NewBatchStream builds a stream. Every stage is required; use Identity for a stream without
// post-filtering.
func NewBatchStream[I, P, F, R, O any](
	source Source[I, P],
	extract FeatureExtractor[I, F],
	infer InferenceFunc[F, R],
	filter PostFilter[R, O],
	logger logging.Logger,
	opts ...StreamOption,
) (*BatchStream[I, P, F, R, O], error) {
	if source == nil {
		return nil, errors.New("batch stream must include a source to pull from")
	}
	if extract == nil {
		return nil, errors.New("feature extractor cannot be nil")
	}
	if infer == nil {
		return nil, errors.New("inference function cannot be nil")
	}
	if filter == nil {
		return nil, errors.New("post-filter cannot be nil")
	}
	var options streamOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &BatchStream[I, P, F, R, O]{
		source:  source,
		extract: extract,
		infer:   infer,
		filter:  filter,
		logger:  logger,
		metrics: metrics.OrNoop(options.metrics),
	}, nil
}

// Identity is a PostFilter that accepts every result unchanged.
func Identity[R any]() PostFilter[R, R] {
	return func(r R) R { return r }
}

// All lazily yields every item of the stream. On the first error it yields that error once and
// stops.
func (s *BatchStream[I, P, F, R, O]) All(ctx context.Context) iter.Seq2[LabeledItem[P, O], error] {
	return func(yield func(LabeledItem[P, O], error) bool) {
		var zero LabeledItem[P, O]
		for {
			batch, err := s.nextBatch(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(zero, errors.Wrap(err, "failed to read next batch"))
				return
			}
			items, err := s.processBatch(ctx, batch)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Run puts every item of the stream into out, blocking whenever out is full, and returns how
// many items were enqueued. It returns the first error of any stage.
func (s *BatchStream[I, P, F, R, O]) Run(ctx context.Context, out Enqueuer[LabeledItem[P, O]]) (int, error) {
	count := 0
	for item, err := range s.All(ctx) {
		if err != nil {
			return count, err
		}
		timer := metrics.StartTimer(s.metrics, metrics.StageEnqueue)
		err = out.Put(ctx, item)
		timer.Stop()
		if err != nil {
			return count, errors.Wrapf(err, "failed to enqueue item %d", count)
		}
		count++
	}
	return count, nil
}

func (s *BatchStream[I, P, F, R, O]) nextBatch(ctx context.Context) (Batch[LabeledInput[I, P]], error) {
	ctx, span := trace.StartSpan(ctx, "pipeline::BatchStream::source")
	defer span.End()
	defer metrics.StartTimer(s.metrics, metrics.StageSource).Stop()
	return s.source.Next(ctx)
}

func (s *BatchStream[I, P, F, R, O]) processBatch(
	ctx context.Context, batch Batch[LabeledInput[I, P]],
) ([]LabeledItem[P, O], error) {
	if len(batch.Entries) == 0 {
		return nil, nil
	}
	s.logger.CDebugw(ctx, "processing batch", "batch", batch.Index, "size", len(batch.Entries))

	features, err := s.extractFeatures(ctx, batch)
	if err != nil {
		return nil, err
	}
	results, err := s.runInference(ctx, batch.Index, features)
	if err != nil {
		return nil, err
	}

	_, span := trace.StartSpan(ctx, "pipeline::BatchStream::postFilter")
	defer span.End()
	items := make([]LabeledItem[P, O], len(results))
	for i, result := range results {
		timer := metrics.StartTimer(s.metrics, metrics.StagePostFilter)
		items[i] = LabeledItem[P, O]{Payload: batch.Entries[i].Label, Result: s.filter(result)}
		timer.Stop()
	}
	return items, nil
}

func (s *BatchStream[I, P, F, R, O]) extractFeatures(ctx context.Context, batch Batch[LabeledInput[I, P]]) ([]F, error) {
	_, span := trace.StartSpan(ctx, "pipeline::BatchStream::extractFeatures")
	defer span.End()

	features := make([]F, len(batch.Entries))
	for i, entry := range batch.Entries {
		timer := metrics.StartTimer(s.metrics, metrics.StageFeatureExtraction)
		f, err := s.extract(entry.Data)
		timer.Stop()
		if err != nil {
			return nil, &FeatureExtractionError{Batch: batch.Index, Entry: i, Err: err}
		}
		features[i] = f
	}
	return features, nil
}

func (s *BatchStream[I, P, F, R, O]) runInference(ctx context.Context, batchIndex int, features []F) ([]R, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline::BatchStream::inference")
	defer span.End()
	defer metrics.StartTimer(s.metrics, metrics.StageInference).Stop()

	results, err := s.infer(ctx, features)
	if err != nil {
		return nil, errors.Wrapf(err, "inference failed on batch %d", batchIndex)
	}
	if len(results) != len(features) {
		return nil, utils.NewLengthMismatchError("inference", len(features), len(results))
	}
	return results, nil
}
