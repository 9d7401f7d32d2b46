package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/rimage"
	"go.viam.com/detectdemo/vision/objectdetection"
)

// FrameDisplay shows each frame in two phases by writing image files: first the plain frame,
// then the frame with its detections drawn on. Each phase is held by the pacer.
type FrameDisplay struct {
	dir     string
	prefix  string
	labels  objectdetection.LabelTable
	pacer   Pacer
	overlay *objectdetection.OverlayOptions
	logger  logging.Logger

	frames atomic.Int64
}

// NewFrameDisplay creates dir if needed. File names start with runID when it is set.
func NewFrameDisplay(
	dir, runID string,
	labels objectdetection.LabelTable,
	pacer Pacer,
	overlay *objectdetection.OverlayOptions,
	logger logging.Logger,
) (*FrameDisplay, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create output directory %q", dir)
	}
	prefix := "frame"
	if runID != "" {
		prefix = runID
	}
	return &FrameDisplay{
		dir:     dir,
		prefix:  prefix,
		labels:  labels,
		pacer:   orNoPause(pacer),
		overlay: overlay,
		logger:  logger,
	}, nil
}

// Deliver writes the plain frame, pauses, writes the annotated frame and pauses again.
func (fd *FrameDisplay) Deliver(ctx context.Context, item Item) error {
	if item.Payload.Image == nil {
		return errors.Errorf("frame %q has no image", item.Payload.Path)
	}
	n := fd.frames.Load()
	base := fd.baseName(n, item.Payload.Path)

	plain := filepath.Join(fd.dir, base+"-plain.png")
	if err := rimage.WriteImageToFile(plain, item.Payload.Image); err != nil {
		return err
	}
	if err := fd.pacer.Pause(ctx); err != nil {
		return err
	}

	annotated := objectdetection.Overlay(item.Payload.Image, item.Result, fd.labels, fd.overlay)
	boxed := filepath.Join(fd.dir, base+"-detections.png")
	if err := rimage.WriteImageToFile(boxed, annotated); err != nil {
		return err
	}
	fd.logger.CDebugw(ctx, "frame shown", "frame", n, "source", item.Payload.Path, "detections", len(item.Result))
	if err := fd.pacer.Pause(ctx); err != nil {
		return err
	}
	fd.frames.Inc()
	return nil
}

// Frames returns how many frames were fully shown.
func (fd *FrameDisplay) Frames() int64 {
	return fd.frames.Load()
}

// Close logs where the frames went.
func (fd *FrameDisplay) Close() error {
	fd.logger.Infow("frames written", "dir", fd.dir, "frames", fd.frames.Load())
	return nil
}

func (fd *FrameDisplay) baseName(n int64, source string) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if name == "" || name == "." {
		return fmt.Sprintf("%s-%04d", fd.prefix, n)
	}
	return fmt.Sprintf("%s-%04d-%s", fd.prefix, n, name)
}
