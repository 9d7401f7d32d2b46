package objectdetection

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"go.viam.com/detectdemo/rimage"
)

// OverlayOptions control how detections are drawn.
type OverlayOptions struct {
	LineWidth float64
	FontSize  float64
	// ShowScore appends the score to each label.
	ShowScore bool
}

// DefaultOverlayOptions are used when Overlay is given nil options.
var DefaultOverlayOptions = OverlayOptions{LineWidth: 3, FontSize: 14, ShowScore: true}

// Overlay returns a copy of img with a box and a label drawn for every detection. Each class
// gets its own color. img is not modified.
func Overlay(img image.Image, detections []Detection, labels LabelTable, opts *OverlayOptions) image.Image {
	if opts == nil {
		opts = &DefaultOverlayOptions
	}
	dc := gg.NewContextForImage(img)
	bounds := image.Rect(0, 0, dc.Width(), dc.Height())
	for _, d := range detections {
		c := rimage.PaletteColor(d.Class)
		rect := d.Pixels(bounds)
		rimage.DrawRectangleEmpty(dc, rect, c, opts.LineWidth)

		text := labels.Name(d.Class)
		if opts.ShowScore {
			text = fmt.Sprintf("%s %.2f", text, d.Score)
		}
		rimage.DrawLabel(dc, text, rect.Min, rimage.TextColorOn(c), c, opts.FontSize)
	}
	return dc.Image()
}
