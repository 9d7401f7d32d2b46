package delivery

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConsumerTimeout is returned when no item arrived within the idle timeout.
	ErrConsumerTimeout = errors.New("no item arrived within the idle timeout")
	// ErrInterruptedWait is returned when a blocking Put or Take was interrupted from outside.
	ErrInterruptedWait = errors.New("wait on delivery channel interrupted")
	// ErrDrained is returned by Take once the channel is closed and empty.
	ErrDrained = errors.New("delivery channel closed and drained")
	// ErrClosed is returned by Put after the channel was closed.
	ErrClosed = errors.New("delivery channel closed")
	// ErrAlreadyStarted is returned when a consumer is started twice.
	ErrAlreadyStarted = errors.New("consumer already started")
	// ErrNotStarted is returned when waiting on a consumer that was never started.
	ErrNotStarted = errors.New("consumer not started")
	// ErrConsumerAttached is returned when a second consumer is bound to the same channel.
	ErrConsumerAttached = errors.New("delivery channel already has a consumer")
)

// SinkFailure reports that the sink faulted while handling an item. It is always fatal.
type SinkFailure struct {
	// Index is the zero based position of the item in delivery order.
	Index int64
	Err   error
}

func (e *SinkFailure) Error() string {
	return fmt.Sprintf("sink failed on item %d: %v", e.Index, e.Err)
}

func (e *SinkFailure) Unwrap() error {
	return e.Err
}

// interruptedError matches ErrInterruptedWait and unwraps to the context error that caused it.
type interruptedError struct {
	cause error
}

func newInterruptedError(cause error) error {
	return &interruptedError{cause: cause}
}

func (e *interruptedError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInterruptedWait, e.cause)
}

func (e *interruptedError) Is(target error) bool {
	return target == ErrInterruptedWait
}

func (e *interruptedError) Unwrap() error {
	return e.cause
}

// IsFatal reports whether err is one of the delivery errors that must abort the pipeline.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var sinkErr *SinkFailure
	return errors.Is(err, ErrConsumerTimeout) ||
		errors.Is(err, ErrInterruptedWait) ||
		errors.As(err, &sinkErr)
}
