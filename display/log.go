package display

import (
	"context"

	"github.com/samber/lo"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/vision/objectdetection"
)

// LogDisplay logs each frame's detections.
type LogDisplay struct {
	labels objectdetection.LabelTable
	logger logging.Logger
}

// NewLogDisplay logs to logger.
func NewLogDisplay(labels objectdetection.LabelTable, logger logging.Logger) *LogDisplay {
	return &LogDisplay{labels: labels, logger: logger}
}

// Deliver logs one frame.
func (ld *LogDisplay) Deliver(ctx context.Context, item Item) error {
	names := lo.Map(item.Result, func(d objectdetection.Detection, _ int) string {
		return describe(d, ld.labels)
	})
	ld.logger.Infow("detections", "frame", item.Payload.Path, "count", len(names), "objects", names)
	return nil
}

// Close does nothing.
func (ld *LogDisplay) Close() error {
	return nil
}
