package inference

import (
	"context"

	"github.com/montanaflynn/stats"
	"gorgonia.org/tensor"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/utils"
	"go.viam.com/detectdemo/vision/objectdetection"
)

// BlobConfig tunes the BlobEngine.
type BlobConfig struct {
	// Threshold is the luminance, between 0 and 255, below which a pixel belongs to a blob. Zero
	// picks a threshold per image: one standard deviation below the mean luminance.
	Threshold float64
	// MinPixels drops blobs with fewer pixels.
	MinPixels int
	// Class is the class index given to every detection.
	Class int
}

// minContrast is the luminance spread below which an image is considered flat.
const minContrast = 1.0

// BlobEngine finds the connected components of dark pixels in each image and reports a box
// around each one. It needs no model file, which makes it useful for local testing.
type BlobEngine struct {
	cfg    BlobConfig
	logger logging.Logger
}

// NewBlobEngine returns a BlobEngine.
func NewBlobEngine(cfg BlobConfig, logger logging.Logger) *BlobEngine {
	return &BlobEngine{cfg: cfg, logger: logger}
}

// Infer finds the blobs of every image in the batch.
func (be *BlobEngine) Infer(ctx context.Context, batch *tensor.Dense) ([][]objectdetection.Detection, error) {
	images, w, h, err := splitBatch(batch)
	if err != nil {
		return nil, err
	}
	out := make([][]objectdetection.Detection, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lum := luminance(img, w, h)
		threshold, err := be.threshold(lum)
		if err != nil {
			return nil, err
		}
		out[i] = be.findBlobs(lum, w, h, threshold)
		be.logger.CDebugw(ctx, "blob inference", "image", i, "threshold", threshold, "blobs", len(out[i]))
	}
	return out, nil
}

// Close releases nothing; the engine holds no resources.
func (be *BlobEngine) Close(ctx context.Context) error {
	return nil
}

func (be *BlobEngine) threshold(lum []float64) (float64, error) {
	if be.cfg.Threshold > 0 {
		return be.cfg.Threshold, nil
	}
	mean, err := stats.Mean(lum)
	if err != nil {
		return 0, err
	}
	stddev, err := stats.StandardDeviation(lum)
	if err != nil {
		return 0, err
	}
	if stddev < minContrast {
		// a flat image has nothing to find
		return 0, nil
	}
	return mean - stddev, nil
}

// luminance converts a CHW image with values in [0, 1] to per-pixel luminance on a 0 to 255
// scale.
func luminance(img []float32, w, h int) []float64 {
	plane := w * h
	lum := make([]float64, plane)
	for i := range lum {
		r, g, b := float64(img[i]), float64(img[plane+i]), float64(img[2*plane+i])
		lum[i] = 255 * (0.2126*r + 0.7152*g + 0.0722*b)
	}
	return lum
}

// findBlobs flood fills every 4-connected region of pixels darker than threshold.
func (be *BlobEngine) findBlobs(lum []float64, w, h int, threshold float64) []objectdetection.Detection {
	seen := make([]bool, len(lum))
	detections := []objectdetection.Detection{}
	queue := make([]int, 0, 64)
	for start := range lum {
		if seen[start] {
			continue
		}
		seen[start] = true
		if lum[start] >= threshold {
			continue
		}

		x0, y0, x1, y1 := w, h, -1, -1 // the bounding box of the segment
		pixels := 0
		var sum float64
		queue = append(queue[:0], start)
		for len(queue) != 0 {
			idx := queue[0]
			queue = queue[1:]
			x, y := idx%w, idx/w
			pixels++
			sum += lum[idx]
			x0, x1 = min(x0, x), max(x1, x)
			y0, y1 = min(y0, y), max(y1, y)
			for _, n := range neighbors(x, y, w, h) {
				if seen[n] {
					continue
				}
				seen[n] = true
				if lum[n] < threshold {
					queue = append(queue, n)
				}
			}
		}
		if pixels < be.cfg.MinPixels {
			continue
		}
		// darker blobs score higher
		score := utils.Clamp(1-(sum/float64(pixels))/threshold, 0, 1)
		detections = append(detections, objectdetection.NewDetection(
			float64(x0)/float64(w), float64(y0)/float64(h),
			float64(x1+1)/float64(w), float64(y1+1)/float64(h),
			be.cfg.Class, score,
		))
	}
	return detections
}

func neighbors(x, y, w, h int) []int {
	out := make([]int, 0, 4)
	if y > 0 {
		out = append(out, (y-1)*w+x)
	}
	if y < h-1 {
		out = append(out, (y+1)*w+x)
	}
	if x > 0 {
		out = append(out, y*w+x-1)
	}
	if x < w-1 {
		out = append(out, y*w+x+1)
	}
	return out
}
