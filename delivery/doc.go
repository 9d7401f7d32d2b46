// Package delivery hands pipeline results from one producer goroutine to one consumer goroutine.
//
// A BoundedChannel is the only shared structure between the two. Put blocks while the channel
// is full, which throttles a fast producer to the pace of a slow consumer. An
// IdleTimeoutConsumer drains the channel on its own goroutine and passes every item to a sink,
// in the order the items were put.
//
// The producer finishes by calling Close. The consumer then drains what is left and exits
// cleanly. If no item arrives within the idle timeout while the channel is still open, the
// producer is presumed stalled and the consumer fails with ErrConsumerTimeout.
package delivery
