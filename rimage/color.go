package rimage

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque RGB color that also carries its HSV representation.
type Color struct {
	R, G, B uint8
	H, S, V float64
}

func (c Color) String() string {
	return fmt.Sprintf("%s (%3d,%4.2f,%4.2f)", c.Hex(), int(c.H), c.S, c.V)
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	a = 0xffff
	return
}

// NewColor returns a color from 8-bit RGB values.
func NewColor(r, g, b uint8) Color {
	cc := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := cc.Hsv()
	return Color{R: r, G: g, B: b, H: h, S: s, V: v}
}

// NewColorFromHSV returns a color from a hue in degrees and saturation and value in [0, 1].
func NewColorFromHSV(h, s, v float64) Color {
	cc := colorful.Hsv(h, s, v)
	r, g, b := cc.RGB255()
	return Color{R: r, G: g, B: b, H: h, S: s, V: v}
}

// NewColorFromColor converts any color, dropping alpha.
func NewColorFromColor(c color.Color) Color {
	if cc, ok := c.(Color); ok {
		return cc
	}
	cc, ok := colorful.MakeColor(c)
	if !ok {
		// fully transparent
		return Black
	}
	r, g, b := cc.RGB255()
	h, s, v := cc.Hsv()
	return Color{R: r, G: g, B: b, H: h, S: s, V: v}
}

// Luminance is the perceived brightness of c on a 0 to 255 scale.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 257
}

// TextColorOn returns Black or White, whichever reads better on bg.
func TextColorOn(bg color.Color) Color {
	if Luminance(bg) > 140 {
		return Black
	}
	return White
}

// goldenAngle spreads consecutive palette hues as far apart as possible.
const goldenAngle = 137.50776405003785

// PaletteColor returns a saturated color for index i. Nearby indices get clearly different hues
// and the same index always gets the same color.
func PaletteColor(i int) Color {
	hue := math.Mod(float64(i)*goldenAngle, 360)
	if hue < 0 {
		hue += 360
	}
	return NewColorFromHSV(hue, 0.85, 0.95)
}

// Common colors.
var (
	Red    = NewColor(255, 0, 0)
	Green  = NewColor(0, 255, 0)
	Blue   = NewColor(0, 0, 255)
	White  = NewColor(255, 255, 255)
	Gray   = NewColor(128, 128, 128)
	Black  = NewColor(0, 0, 0)
	Yellow = NewColor(255, 255, 0)
)
