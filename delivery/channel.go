package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/detectdemo/metrics"
)

// BoundedChannel is a fixed capacity FIFO queue for exactly one producer and one consumer.
// Occupancy never exceeds the capacity given at construction.
type BoundedChannel[T any] struct {
	items chan T
	// done is closed by Close and marks that no more items will be put.
	done      chan struct{}
	closeOnce sync.Once

	clock   clock.Clock
	metrics metrics.Recorder

	enqueued atomic.Int64
	dequeued atomic.Int64
	attached atomic.Bool
}

// ChannelStats are the counters of a BoundedChannel.
type ChannelStats struct {
	Enqueued int64
	Dequeued int64
}

// ChannelOption configures a BoundedChannel.
type ChannelOption func(*channelOptions)

type channelOptions struct {
	clock   clock.Clock
	metrics metrics.Recorder
}

// WithClock sets the clock used for take timeouts.
func WithClock(clk clock.Clock) ChannelOption {
	return func(o *channelOptions) {
		o.clock = clk
	}
}

// WithMetrics sets the recorder that is told about enqueues and queue depth.
func WithMetrics(recorder metrics.Recorder) ChannelOption {
	return func(o *channelOptions) {
		o.metrics = recorder
	}
}

// NewBoundedChannel returns an empty channel that holds at most capacity items.
func NewBoundedChannel[T any](capacity int, opts ...ChannelOption) (*BoundedChannel[T], error) {
	if capacity < 1 {
		return nil, errors.Errorf("channel capacity must be at least 1, got %d", capacity)
	}
	options := channelOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&options)
	}
	return &BoundedChannel[T]{
		items:   make(chan T, capacity),
		done:    make(chan struct{}),
		clock:   options.clock,
		metrics: metrics.OrNoop(options.metrics),
	}, nil
}

// Put appends item, blocking while the channel is full. It fails with ErrClosed after Close and
// with ErrInterruptedWait if ctx is done before space frees up. Items are never dropped.
func (c *BoundedChannel[T]) Put(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return newInterruptedError(err)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.items <- item:
		c.enqueued.Inc()
		c.metrics.ItemEnqueued()
		c.metrics.QueueDepth(len(c.items))
		return nil
	case <-ctx.Done():
		return newInterruptedError(ctx.Err())
	}
}

// TakeWithTimeout removes and returns the oldest item. It waits at most timeout for one to
// arrive and then fails with ErrConsumerTimeout. Once the channel is closed and empty it fails
// with ErrDrained without waiting. It fails with ErrInterruptedWait if ctx is done first, even
// when items are queued.
func (c *BoundedChannel[T]) TakeWithTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, newInterruptedError(err)
	}
	select {
	case item := <-c.items:
		return c.took(item), nil
	default:
	}

	timer := c.clock.Timer(timeout)
	defer timer.Stop()

	select {
	case item := <-c.items:
		return c.took(item), nil
	case <-c.done:
		// Nothing more will be put, so whatever is still buffered is all there is.
		select {
		case item := <-c.items:
			return c.took(item), nil
		default:
			return zero, ErrDrained
		}
	case <-timer.C:
		// An item that raced the timer still wins.
		select {
		case item := <-c.items:
			return c.took(item), nil
		default:
			return zero, errors.Wrapf(ErrConsumerTimeout, "waited %s", timeout)
		}
	case <-ctx.Done():
		return zero, newInterruptedError(ctx.Err())
	}
}

func (c *BoundedChannel[T]) took(item T) T {
	c.dequeued.Inc()
	c.metrics.QueueDepth(len(c.items))
	return item
}

// Close marks that the producer is finished. Items already in the channel can still be taken.
// Calling Close more than once has no further effect.
func (c *BoundedChannel[T]) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Len returns the number of items currently in the channel.
func (c *BoundedChannel[T]) Len() int {
	return len(c.items)
}

// Cap returns the capacity.
func (c *BoundedChannel[T]) Cap() int {
	return cap(c.items)
}

// Stats returns the enqueue and dequeue counters.
func (c *BoundedChannel[T]) Stats() ChannelStats {
	return ChannelStats{Enqueued: c.enqueued.Load(), Dequeued: c.dequeued.Load()}
}

// attach claims the channel for a consumer. Only the first call succeeds.
func (c *BoundedChannel[T]) attach() bool {
	return c.attached.CompareAndSwap(false, true)
}
