package inference

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/ml"
	"go.viam.com/detectdemo/vision/objectdetection"
)

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func features(t *testing.T, imgs ...image.Image) []*tensor.Dense {
	t.Helper()
	out := make([]*tensor.Dense, len(imgs))
	for i, img := range imgs {
		f, err := ml.ImageToTensor(img, uint(img.Bounds().Dx()), uint(img.Bounds().Dy()))
		test.That(t, err, test.ShouldBeNil)
		out[i] = f
	}
	return out
}

func TestBlobEngine(t *testing.T) {
	engine := NewBlobEngine(BlobConfig{MinPixels: 4, Class: 7}, logging.NewTestLogger(t))
	infer := BatchFunc(engine)

	blank := whiteImage(40, 20)
	withBlobs := whiteImage(40, 20)
	fill(withBlobs, image.Rect(4, 2, 14, 12), color.Black)
	fill(withBlobs, image.Rect(30, 10, 38, 18), color.Gray{Y: 60})
	fill(withBlobs, image.Rect(20, 0, 21, 1), color.Black) // too small

	results, err := infer(context.Background(), features(t, blank, withBlobs))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 2)
	test.That(t, results[0], test.ShouldBeEmpty)
	test.That(t, results[1], test.ShouldHaveLength, 2)

	first := results[1][0]
	test.That(t, first.Class, test.ShouldEqual, 7)
	test.That(t, first.Pixels(blank.Bounds()), test.ShouldResemble, image.Rect(4, 2, 14, 12))
	test.That(t, first.Score, test.ShouldAlmostEqual, 1.0)

	second := results[1][1]
	test.That(t, second.Pixels(blank.Bounds()), test.ShouldResemble, image.Rect(30, 10, 38, 18))
	test.That(t, second.Score, test.ShouldBeLessThan, first.Score)

	test.That(t, engine.Close(context.Background()), test.ShouldBeNil)
}

func TestBlobEngineFixedThreshold(t *testing.T) {
	img := whiteImage(10, 10)
	fill(img, image.Rect(0, 0, 5, 5), color.Gray{Y: 100})

	dim := NewBlobEngine(BlobConfig{Threshold: 50}, logging.NewTestLogger(t))
	results, err := BatchFunc(dim)(context.Background(), features(t, img))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0], test.ShouldBeEmpty)

	bright := NewBlobEngine(BlobConfig{Threshold: 200}, logging.NewTestLogger(t))
	results, err = BatchFunc(bright)(context.Background(), features(t, img))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0], test.ShouldHaveLength, 1)
	test.That(t, results[0][0].Area(), test.ShouldAlmostEqual, 0.25)
}

func TestBlobEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := NewBlobEngine(BlobConfig{}, logging.NewTestLogger(t))
	_, err := BatchFunc(engine)(ctx, features(t, whiteImage(4, 4)))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestBlobEngineBadBatch(t *testing.T) {
	engine := NewBlobEngine(BlobConfig{}, logging.NewTestLogger(t))
	_, err := engine.Infer(context.Background(), nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = engine.Infer(context.Background(), tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{1, 2, 3, 4})))
	test.That(t, err, test.ShouldNotBeNil)
}

type shortEngine struct{}

func (shortEngine) Infer(ctx context.Context, batch *tensor.Dense) ([][]objectdetection.Detection, error) {
	return nil, nil
}

func (shortEngine) Close(ctx context.Context) error {
	return nil
}

func TestBatchFuncLengthMismatch(t *testing.T) {
	_, err := BatchFunc(shortEngine{})(context.Background(), features(t, whiteImage(2, 2)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected 1 results but got 0")
}
