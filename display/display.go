// Package display renders detection results. Every display is a pipeline sink that gets one
// frame and its detections at a time, in order.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/detectdemo/dataset"
	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/pipeline"
	"go.viam.com/detectdemo/vision/objectdetection"
)

// Item is a frame together with its accepted detections.
type Item = pipeline.LabeledItem[dataset.Frame, []objectdetection.Detection]

// Sink is a display for Items.
type Sink = pipeline.Sink[dataset.Frame, []objectdetection.Detection]

// Kind names a display implementation.
type Kind string

// The known displays.
const (
	KindFrames Kind = "frames"
	KindTable  Kind = "table"
	KindLog    Kind = "log"
)

// Kinds lists every known display.
var Kinds = []Kind{KindFrames, KindTable, KindLog}

// ParseKind returns the display named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown display %q, expected one of %v", s, Kinds)
}

// Config holds what any display may need.
type Config struct {
	Kind      Kind
	Labels    objectdetection.LabelTable
	OutputDir string
	RunID     string
	// Writer receives table output. Defaults to nothing being written.
	Writer  io.Writer
	Overlay *objectdetection.OverlayOptions
	Pacer   Pacer
}

// NewOpener returns a function that opens the configured display.
func NewOpener(cfg Config, logger logging.Logger) (pipeline.SinkOpener[dataset.Frame, []objectdetection.Detection], error) {
	switch cfg.Kind {
	case KindFrames:
		if cfg.OutputDir == "" {
			return nil, errors.New("the frames display needs an output directory")
		}
		return func(ctx context.Context) (Sink, error) {
			return NewFrameDisplay(cfg.OutputDir, cfg.RunID, cfg.Labels, cfg.Pacer, cfg.Overlay, logger)
		}, nil
	case KindTable:
		w := cfg.Writer
		if w == nil {
			w = io.Discard
		}
		return func(ctx context.Context) (Sink, error) {
			return NewTableDisplay(w, cfg.Labels), nil
		}, nil
	case KindLog:
		return func(ctx context.Context) (Sink, error) {
			return NewLogDisplay(cfg.Labels, logger), nil
		}, nil
	default:
		return nil, errors.Errorf("unknown display %q", cfg.Kind)
	}
}

func describe(d objectdetection.Detection, labels objectdetection.LabelTable) string {
	return fmt.Sprintf("%s %.2f", labels.Name(d.Class), d.Score)
}
