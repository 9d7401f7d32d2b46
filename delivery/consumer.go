package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/metrics"
	"go.viam.com/detectdemo/utils"
)

// SinkFunc handles one item. It may block, e.g. to pace a display. Any error it returns, or any
// panic it raises, is fatal to the consumer.
type SinkFunc[T any] func(ctx context.Context, item T) error

// IdleTimeoutConsumer takes items from a BoundedChannel on a dedicated goroutine and passes
// each to a sink, in order. It stops cleanly once the channel is closed and drained, and fails
// on the first idle timeout, sink failure or interruption.
type IdleTimeoutConsumer[T any] struct {
	ch      *BoundedChannel[T]
	sink    SinkFunc[T]
	timeout time.Duration
	logger  logging.Logger
	metrics metrics.Recorder
	onFatal func(error)

	mu      sync.Mutex
	workers utils.StoppableWorkers
	done    chan struct{}
	err     error

	delivered atomic.Int64
}

// ConsumerOption configures an IdleTimeoutConsumer.
type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	metrics metrics.Recorder
	onFatal func(error)
}

// WithConsumerMetrics sets the recorder told about sink durations and deliveries.
func WithConsumerMetrics(recorder metrics.Recorder) ConsumerOption {
	return func(o *consumerOptions) {
		o.metrics = recorder
	}
}

// WithFatalHandler sets a function called once, from the consumer goroutine, with the error that
// made the consumer fail. It is not called on a clean exit.
func WithFatalHandler(onFatal func(error)) ConsumerOption {
	return func(o *consumerOptions) {
		o.onFatal = onFatal
	}
}

// NewIdleTimeoutConsumer binds a consumer to ch. A channel accepts only one consumer.
func NewIdleTimeoutConsumer[T any](
	ch *BoundedChannel[T],
	sink SinkFunc[T],
	timeout time.Duration,
	logger logging.Logger,
	opts ...ConsumerOption,
) (*IdleTimeoutConsumer[T], error) {
	if ch == nil {
		return nil, errors.New("consumer requires a channel")
	}
	if sink == nil {
		return nil, errors.New("consumer requires a sink")
	}
	if timeout <= 0 {
		return nil, errors.Errorf("idle timeout must be positive, got %s", timeout)
	}
	var options consumerOptions
	for _, opt := range opts {
		opt(&options)
	}
	if !ch.attach() {
		return nil, ErrConsumerAttached
	}
	return &IdleTimeoutConsumer[T]{
		ch:      ch,
		sink:    sink,
		timeout: timeout,
		logger:  logger,
		metrics: metrics.OrNoop(options.metrics),
		onFatal: options.onFatal,
		done:    make(chan struct{}),
	}, nil
}

// Start launches the consumer goroutine. Cancelling ctx interrupts it like Stop does, and a ctx
// that is already done makes the consumer fail with ErrInterruptedWait before taking anything.
func (c *IdleTimeoutConsumer[T]) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workers != nil {
		return ErrAlreadyStarted
	}
	// The loop must always run so done gets closed; ctx reaches it through runCtx.
	c.workers = utils.NewStoppableWorkers(func(workerCtx context.Context) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(workerCtx, cancel)
		defer stop()
		c.run(runCtx)
	})
	return nil
}

// Stop interrupts the consumer and waits for its goroutine to exit. The pending wait returns
// ErrInterruptedWait, which becomes the result of Wait unless the consumer had already finished.
func (c *IdleTimeoutConsumer[T]) Stop() {
	c.mu.Lock()
	workers := c.workers
	c.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}

// Wait blocks until the consumer goroutine exits and returns its result: nil when the channel
// was closed and fully drained, otherwise the fatal error.
func (c *IdleTimeoutConsumer[T]) Wait() error {
	c.mu.Lock()
	started := c.workers != nil
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	<-c.done
	return c.err
}

// Done is closed when the consumer goroutine exits.
func (c *IdleTimeoutConsumer[T]) Done() <-chan struct{} {
	return c.done
}

// Delivered returns how many items the sink handled successfully.
func (c *IdleTimeoutConsumer[T]) Delivered() int64 {
	return c.delivered.Load()
}

func (c *IdleTimeoutConsumer[T]) run(ctx context.Context) {
	err := c.loop(ctx)
	c.err = err
	if err != nil && c.onFatal != nil {
		c.onFatal(err)
	}
	close(c.done)
}

func (c *IdleTimeoutConsumer[T]) loop(ctx context.Context) error {
	c.logger.Debugw("consumer started", "timeout", c.timeout, "capacity", c.ch.Cap())
	for {
		item, err := c.ch.TakeWithTimeout(ctx, c.timeout)
		if err != nil {
			if errors.Is(err, ErrDrained) {
				c.logger.Debugw("consumer drained", "delivered", c.delivered.Load())
				return nil
			}
			c.logger.Errorw("consumer stopping", "error", err, "delivered", c.delivered.Load())
			return err
		}
		if err := c.deliver(ctx, c.delivered.Load(), item); err != nil {
			c.logger.Errorw("sink failed", "error", err)
			return err
		}
		c.delivered.Inc()
		c.metrics.ItemDelivered()
	}
}

func (c *IdleTimeoutConsumer[T]) deliver(ctx context.Context, index int64, item T) (err error) {
	timer := metrics.StartTimer(c.metrics, metrics.StageSink)
	defer timer.Stop()
	defer func() {
		if r := recover(); r != nil {
			err = &SinkFailure{Index: index, Err: errors.Errorf("sink panicked: %v", r)}
		}
	}()
	if sinkErr := c.sink(ctx, item); sinkErr != nil {
		return &SinkFailure{Index: index, Err: sinkErr}
	}
	return nil
}
