package display

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/detectdemo/dataset"
	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/rimage"
	"go.viam.com/detectdemo/vision/objectdetection"
)

var labels = objectdetection.LabelTable{"person", "dog"}

func testItem(path string, dets ...objectdetection.Detection) Item {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	return Item{Payload: dataset.Frame{Path: path, Image: img}, Result: dets}
}

type countingPacer struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPacer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Frames")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, k, test.ShouldEqual, KindFrames)
	_, err = ParseKind("window")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewOpener(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := NewOpener(Config{Kind: "window"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewOpener(Config{Kind: KindFrames}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	for _, kind := range Kinds {
		open, err := NewOpener(Config{Kind: kind, OutputDir: t.TempDir()}, logger)
		test.That(t, err, test.ShouldBeNil)
		sink, err := open(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sink.Deliver(context.Background(), testItem("a.png")), test.ShouldBeNil)
		test.That(t, sink.Close(), test.ShouldBeNil)
	}
}

func TestFrameDisplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	pacer := &countingPacer{}
	fd, err := NewFrameDisplay(dir, "run1", labels, pacer, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	ctx := context.Background()
	test.That(t, fd.Deliver(ctx, testItem("images/A.jpg")), test.ShouldBeNil)
	test.That(t, fd.Deliver(ctx, testItem("images/B.jpg", objectdetection.NewDetection(0.2, 0.25, 0.8, 0.75, 1, 0.9))), test.ShouldBeNil)
	test.That(t, fd.Frames(), test.ShouldEqual, int64(2))
	test.That(t, pacer.calls, test.ShouldEqual, 4)
	test.That(t, fd.Close(), test.ShouldBeNil)

	files, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	test.That(t, names, test.ShouldResemble, []string{
		"run1-0000-A-detections.png", "run1-0000-A-plain.png",
		"run1-0001-B-detections.png", "run1-0001-B-plain.png",
	})

	plain, err := rimage.ReadImageFromFile(filepath.Join(dir, "run1-0001-B-plain.png"))
	test.That(t, err, test.ShouldBeNil)
	boxed, err := rimage.ReadImageFromFile(filepath.Join(dir, "run1-0001-B-detections.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rimage.NewColorFromColor(plain.At(50, 60)), test.ShouldResemble, rimage.White)
	test.That(t, rimage.NewColorFromColor(boxed.At(50, 60)).Hex(), test.ShouldEqual, rimage.PaletteColor(1).Hex())

	err = fd.Deliver(ctx, Item{Payload: dataset.Frame{Path: "empty"}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFrameDisplayInterrupted(t *testing.T) {
	fd, err := NewFrameDisplay(t.TempDir(), "", labels, FixedPacer(time.Hour), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = fd.Deliver(ctx, testItem("a.png"))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, fd.Frames(), test.ShouldEqual, int64(0))
}

func TestFixedPacer(t *testing.T) {
	test.That(t, FixedPacer(0).Pause(context.Background()), test.ShouldBeNil)

	start := time.Now()
	test.That(t, FixedPacer(20*time.Millisecond).Pause(context.Background()), test.ShouldBeNil)
	test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, FixedPacer(time.Hour).Pause(ctx), test.ShouldNotBeNil)
}

func TestTableDisplay(t *testing.T) {
	var buf bytes.Buffer
	td := NewTableDisplay(&buf, labels)
	ctx := context.Background()
	test.That(t, td.Deliver(ctx, testItem("frames/A.jpg")), test.ShouldBeNil)
	test.That(t, td.Deliver(ctx, testItem("frames/B.jpg",
		objectdetection.NewDetection(0, 0, 0.5, 0.5, 0, 0.93),
		objectdetection.NewDetection(0.5, 0.5, 1, 1, 4, 0.41),
	)), test.ShouldBeNil)
	test.That(t, td.Close(), test.ShouldBeNil)

	out := buf.String()
	test.That(t, out, test.ShouldContainSubstring, "#0 A.jpg")
	test.That(t, out, test.ShouldContainSubstring, "#1 B.jpg")
	test.That(t, out, test.ShouldContainSubstring, "person")
	test.That(t, out, test.ShouldContainSubstring, "0.93")
	test.That(t, out, test.ShouldContainSubstring, "(0,0)-(50,40)")
	test.That(t, strings.ToLower(out), test.ShouldContainSubstring, "2 detections")
	test.That(t, out, test.ShouldEndWith, "2 frames, 2 detections\n")
}

func TestLogDisplay(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	ld := NewLogDisplay(labels, logger)
	item := testItem("B.jpg", objectdetection.NewDetection(0, 0, 0.5, 0.5, 1, 0.75))
	test.That(t, ld.Deliver(context.Background(), item), test.ShouldBeNil)
	test.That(t, ld.Close(), test.ShouldBeNil)

	entries := logs.FilterMessage("detections").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["count"], test.ShouldEqual, int64(1))
	test.That(t, fields["objects"], test.ShouldResemble, []interface{}{"dog 0.75"})
}
