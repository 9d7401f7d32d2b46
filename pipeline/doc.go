// Package pipeline turns batches of labeled inputs into labeled results and delivers them to a
// sink.
//
// A BatchStream is the producer: it pulls batches from a Source, extracts features from each
// entry, runs inference on the whole batch, post-filters every result and pairs it with the
// entry's render payload. A Lifecycle opens the sink, starts a delivery.IdleTimeoutConsumer,
// runs the producer on the calling goroutine and tears everything down again.
package pipeline
