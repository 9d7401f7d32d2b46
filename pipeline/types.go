package pipeline

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// LabeledInput is one entry of a data set: the input features are computed from, and the
// payload the result will be rendered with.
type LabeledInput[I, P any] struct {
	Data  I
	Label P
}

// LabeledItem is a computed result paired with its render payload. Ownership passes to the
// consumer when the item is enqueued.
type LabeledItem[P, O any] struct {
	Payload P
	Result  O
}

// Batch is an ordered group of entries processed together. All batches of a source have the
// same size except possibly the last, which may be shorter.
type Batch[T any] struct {
	Index   int
	Entries []T
}

// Source lazily produces batches. Next returns io.EOF once there are no more batches.
type Source[I, P any] interface {
	Next(ctx context.Context) (Batch[LabeledInput[I, P]], error)
}

// FeatureExtractor computes the features of one input.
type FeatureExtractor[I, F any] func(input I) (F, error)

// InferenceFunc runs the model on a batch of features. It must return one result per feature,
// in the same order.
type InferenceFunc[F, R any] func(ctx context.Context, features []F) ([]R, error)

// PostFilter turns a raw model result into the accepted result.
type PostFilter[R, O any] func(result R) O

// Enqueuer accepts produced items, blocking while it has no room.
type Enqueuer[T any] interface {
	Put(ctx context.Context, item T) error
}

// SliceSource is a Source over an in-memory slice.
type SliceSource[I, P any] struct {
	entries   []LabeledInput[I, P]
	batchSize int
	next      int
	batches   int
}

// NewSliceSource returns a source that yields entries in batches of batchSize.
func NewSliceSource[I, P any](entries []LabeledInput[I, P], batchSize int) (*SliceSource[I, P], error) {
	if batchSize < 1 {
		return nil, errors.Errorf("batch size must be at least 1, got %d", batchSize)
	}
	return &SliceSource[I, P]{entries: entries, batchSize: batchSize}, nil
}

// Next returns the next batch, or io.EOF when all entries were returned.
func (s *SliceSource[I, P]) Next(ctx context.Context) (Batch[LabeledInput[I, P]], error) {
	if err := ctx.Err(); err != nil {
		return Batch[LabeledInput[I, P]]{}, err
	}
	if s.next >= len(s.entries) {
		return Batch[LabeledInput[I, P]]{}, io.EOF
	}
	end := s.next + s.batchSize
	if end > len(s.entries) {
		end = len(s.entries)
	}
	batch := Batch[LabeledInput[I, P]]{Index: s.batches, Entries: s.entries[s.next:end]}
	s.next = end
	s.batches++
	return batch, nil
}
