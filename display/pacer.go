package display

import (
	"context"
	"time"

	goutils "go.viam.com/utils"
)

// Pacer holds each phase of a frame on screen for a while.
type Pacer interface {
	Pause(ctx context.Context) error
}

// FixedPacer pauses for the same duration every time. A zero duration does not pause.
type FixedPacer time.Duration

// Pause waits out the duration, or returns ctx's error if it is done first.
func (p FixedPacer) Pause(ctx context.Context) error {
	if p <= 0 {
		return ctx.Err()
	}
	if !goutils.SelectContextOrWait(ctx, time.Duration(p)) {
		return ctx.Err()
	}
	return nil
}

func orNoPause(p Pacer) Pacer {
	if p == nil {
		return FixedPacer(0)
	}
	return p
}
