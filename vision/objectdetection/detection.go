// Package objectdetection defines detections, the filters applied to raw model output, and how
// detections are drawn onto images.
package objectdetection

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"go.viam.com/detectdemo/utils"
)

// Detection is one object found in an image. The box is normalized to [0, 1] relative to the
// image the detection was made on, so it can be drawn on an image of any size.
type Detection struct {
	Box   r2.Rect
	Class int
	Score float64
}

// NewDetection builds a detection from normalized corner coordinates, clamping them into the
// unit square.
func NewDetection(xMin, yMin, xMax, yMax float64, class int, score float64) Detection {
	return Detection{
		Box: r2.Rect{
			X: r1.Interval{Lo: utils.Clamp(xMin, 0, 1), Hi: utils.Clamp(xMax, 0, 1)},
			Y: r1.Interval{Lo: utils.Clamp(yMin, 0, 1), Hi: utils.Clamp(yMax, 0, 1)},
		},
		Class: class,
		Score: score,
	}
}

// Area is the normalized area of the box, between 0 and 1.
func (d Detection) Area() float64 {
	return area(d.Box)
}

// Pixels scales the box onto an image with the given bounds.
func (d Detection) Pixels(bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	return image.Rect(
		bounds.Min.X+int(math.Round(d.Box.X.Lo*w)),
		bounds.Min.Y+int(math.Round(d.Box.Y.Lo*h)),
		bounds.Min.X+int(math.Round(d.Box.X.Hi*w)),
		bounds.Min.Y+int(math.Round(d.Box.Y.Hi*h)),
	)
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d (%.2f) at [%.3f,%.3f]-[%.3f,%.3f]",
		d.Class, d.Score, d.Box.X.Lo, d.Box.Y.Lo, d.Box.X.Hi, d.Box.Y.Hi)
}

// IoU is the intersection over union of two boxes. Two empty boxes have an IoU of 0.
func IoU(a, b r2.Rect) float64 {
	inter := area(a.Intersection(b))
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(r r2.Rect) float64 {
	if r.IsEmpty() {
		return 0
	}
	size := r.Size()
	return size.X * size.Y
}
