package rimage

import (
	"image"
	"testing"

	"github.com/fogleman/gg"
	"go.viam.com/test"
)

func TestDrawRectangleEmpty(t *testing.T) {
	dc := gg.NewContext(100, 100)
	dc.SetColor(White)
	dc.Clear()
	DrawRectangleEmpty(dc, image.Rect(20, 20, 80, 60), Red, 2)
	img := dc.Image()

	test.That(t, NewColorFromColor(img.At(50, 20)), test.ShouldResemble, Red)
	test.That(t, NewColorFromColor(img.At(20, 40)), test.ShouldResemble, Red)
	test.That(t, NewColorFromColor(img.At(50, 40)), test.ShouldResemble, White)
}

func TestDrawLabel(t *testing.T) {
	dc := gg.NewContext(120, 60)
	dc.SetColor(White)
	dc.Clear()
	DrawLabel(dc, "person", image.Pt(10, 40), White, Blue, 12)
	img := dc.Image()

	blue := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			if NewColorFromColor(img.At(x, y)) == Blue {
				blue++
			}
		}
	}
	test.That(t, blue, test.ShouldBeGreaterThan, 0)
	// the label sits above its anchor
	test.That(t, NewColorFromColor(img.At(11, 39)), test.ShouldResemble, Blue)
	test.That(t, NewColorFromColor(img.At(11, 45)), test.ShouldResemble, White)
}
