package pipeline

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/detectdemo/delivery"
	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/metrics"
	"go.viam.com/detectdemo/utils"
)

// Sink receives delivered items on the consumer goroutine. Close releases whatever the sink
// holds and is called exactly once per opened sink.
type Sink[P, O any] interface {
	Deliver(ctx context.Context, item LabeledItem[P, O]) error
	Close() error
}

// SinkOpener acquires a sink for one run.
type SinkOpener[P, O any] func(ctx context.Context) (Sink[P, O], error)

// Producer fills out with items and returns how many it enqueued. It returns nil once its input
// is exhausted. *BatchStream is the usual producer.
type Producer[P, O any] interface {
	Run(ctx context.Context, out Enqueuer[LabeledItem[P, O]]) (int, error)
}

// LifecycleConfig sizes the hand-off between producer and consumer.
type LifecycleConfig struct {
	Capacity    int
	IdleTimeout time.Duration
}

// Validate checks the values are usable.
func (c LifecycleConfig) Validate() error {
	if c.Capacity < 1 {
		return errors.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if c.IdleTimeout <= 0 {
		return errors.Errorf("idle timeout must be positive, got %s", c.IdleTimeout)
	}
	return nil
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*lifecycleOptions)

type lifecycleOptions struct {
	metrics   metrics.Recorder
	closeHook func()
	observer  func(State)
}

// WithLifecycleMetrics sets the recorder the channel and consumer report to.
func WithLifecycleMetrics(recorder metrics.Recorder) LifecycleOption {
	return func(o *lifecycleOptions) {
		o.metrics = recorder
	}
}

// WithCloseHook sets a function run exactly once when Run returns, after the sink is released,
// whether the run succeeded or not.
func WithCloseHook(hook func()) LifecycleOption {
	return func(o *lifecycleOptions) {
		o.closeHook = hook
	}
}

// WithStateObserver sets a function told about every state change, in order.
func WithStateObserver(observer func(State)) LifecycleOption {
	return func(o *lifecycleOptions) {
		o.observer = observer
	}
}

// Lifecycle runs a producer against a sink through a bounded channel. It can be run once.
type Lifecycle[P, O any] struct {
	cfg      LifecycleConfig
	open     SinkOpener[P, O]
	producer Producer[P, O]
	logger   logging.Logger
	opts     lifecycleOptions

	state     atomic.Int32
	ran       atomic.Bool
	closeOnce sync.Once
}

// NewLifecycle validates its collaborators and returns an idle lifecycle.
func NewLifecycle[P, O any](
	cfg LifecycleConfig,
	open SinkOpener[P, O],
	producer Producer[P, O],
	logger logging.Logger,
	opts ...LifecycleOption,
) (*Lifecycle[P, O], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if open == nil {
		return nil, errors.New("lifecycle requires a sink opener")
	}
	if producer == nil {
		return nil, errors.New("lifecycle requires a producer")
	}
	var options lifecycleOptions
	for _, opt := range opts {
		opt(&options)
	}
	options.metrics = metrics.OrNoop(options.metrics)
	return &Lifecycle[P, O]{
		cfg:      cfg,
		open:     open,
		producer: producer,
		logger:   logger,
		opts:     options,
	}, nil
}

// State returns the current state.
func (l *Lifecycle[P, O]) State() State {
	return State(l.state.Load())
}

// Run opens the sink, starts the consumer, runs the producer to completion on the calling
// goroutine, then closes the channel and waits for the consumer to drain it. A fatal consumer
// error cancels the producer. The sink is released and the close hook called on every path.
func (l *Lifecycle[P, O]) Run(ctx context.Context) (err error) {
	if !l.ran.CompareAndSwap(false, true) {
		return errors.New("lifecycle can only be run once")
	}
	ctx, span := trace.StartSpan(ctx, "pipeline::Lifecycle::Run")
	defer span.End()
	defer l.runCloseHook()

	l.setState(StateStarting)
	sink, err := l.open(ctx)
	if err != nil {
		l.setState(StateFailedFatal)
		return errors.Wrap(err, "failed to open sink")
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			err = multierr.Combine(err, errors.Wrap(closeErr, "failed to release sink"))
		}
	}()

	ch, err := delivery.NewBoundedChannel[LabeledItem[P, O]](l.cfg.Capacity, delivery.WithMetrics(l.opts.metrics))
	if err != nil {
		l.setState(StateFailedFatal)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var consumerFailed atomic.Bool
	consumer, err := delivery.NewIdleTimeoutConsumer(
		ch,
		sink.Deliver,
		l.cfg.IdleTimeout,
		l.logger.Sublogger("consumer"),
		delivery.WithConsumerMetrics(l.opts.metrics),
		delivery.WithFatalHandler(func(error) {
			consumerFailed.Store(true)
			cancel()
		}),
	)
	if err != nil {
		l.setState(StateFailedFatal)
		return err
	}
	if err := consumer.Start(runCtx); err != nil {
		l.setState(StateFailedFatal)
		return err
	}

	l.setState(StateRunning)
	produced, prodErr := l.producer.Run(runCtx, ch)
	if prodErr != nil {
		l.setState(StateFailedFatal)
		return l.failProducer(consumer, consumerFailed.Load(), produced, prodErr)
	}

	l.logger.Debugw("producer exhausted", "produced", produced)
	l.setState(StateDraining)
	ch.Close()
	stopSlowLog := utils.SlowLogger(ctx, "waiting for sink to drain", "queued", strconv.Itoa(ch.Len()), l.logger)
	consErr := consumer.Wait()
	stopSlowLog()
	if consErr != nil {
		l.setState(StateFailedFatal)
		return consErr
	}
	l.logger.Infow("pipeline finished", "produced", produced, "delivered", consumer.Delivered())
	l.setState(StateTerminated)
	return nil
}

// failProducer stops the consumer after the producer returned an error and picks the root cause.
// When the consumer failed first its error is what cancelled the producer.
func (l *Lifecycle[P, O]) failProducer(
	consumer *delivery.IdleTimeoutConsumer[LabeledItem[P, O]], consumerFailedFirst bool, produced int, prodErr error,
) error {
	consumer.Stop()
	consErr := consumer.Wait()

	if consumerFailedFirst && consErr != nil {
		l.logger.Debugw("producer interrupted by consumer failure", "produced", produced, "error", prodErr)
		return consErr
	}
	l.logger.Errorw("producer failed", "produced", produced, "error", prodErr)
	return prodErr
}

// setState moves to s. A run that reached a final state stays there.
func (l *Lifecycle[P, O]) setState(s State) {
	prev := l.State()
	if prev == s || prev.Final() {
		return
	}
	l.state.Store(int32(s))
	l.logger.Debugw("pipeline state changed", "from", prev, "to", s)
	if l.opts.observer != nil {
		l.opts.observer(s)
	}
}

func (l *Lifecycle[P, O]) runCloseHook() {
	if l.opts.closeHook == nil {
		return
	}
	l.closeOnce.Do(l.opts.closeHook)
}
