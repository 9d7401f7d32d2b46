package utils

import (
	"context"
	"time"

	"go.viam.com/detectdemo/logging"
)

// SlowLogger starts a goroutine that logs every few seconds as long as the context has not timed out or was not cancelled.
// The returned function stops it and waits for it to exit.
func SlowLogger(ctx context.Context, msg, fieldName, fieldVal string, logger logging.Logger) func() {
	return slowLogger(ctx, msg, fieldName, fieldVal, logger, 2*time.Second, 3*time.Second, 5*time.Second)
}

func slowLogger(
	ctx context.Context, msg, fieldName, fieldVal string, logger logging.Logger, first, second, rest time.Duration,
) func() {
	startTime := time.Now()
	workers := NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		slowTicker := time.NewTicker(first)
		defer slowTicker.Stop()
		firstTick := true
		for {
			select {
			case <-slowTicker.C:
				elapsed := time.Since(startTime).Round(time.Millisecond).String()
				logger.Warnw(msg, fieldName, fieldVal, "time_elapsed", elapsed)
				if firstTick {
					slowTicker.Reset(second)
					firstTick = false
				} else {
					slowTicker.Reset(rest)
				}
			case <-ctx.Done():
				return
			}
		}
	})
	return workers.Stop
}
