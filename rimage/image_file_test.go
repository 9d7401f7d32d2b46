package rimage

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, White)
		}
	}
	img.Set(3, 3, Red)
	return img
}

func TestIsImageFile(t *testing.T) {
	test.That(t, IsImageFile("frames/a.JPG"), test.ShouldBeTrue)
	test.That(t, IsImageFile("b.qoi"), test.ShouldBeTrue)
	test.That(t, IsImageFile("labels.txt"), test.ShouldBeFalse)
	test.That(t, IsImageFile("noext"), test.ShouldBeFalse)
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, testImage()), test.ShouldBeNil)

	img, format, err := DecodeImage(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, format, test.ShouldEqual, "png")
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 8))
	test.That(t, NewColorFromColor(img.At(3, 3)), test.ShouldResemble, Red)

	_, _, err = DecodeImage(bytes.NewReader([]byte("not an image")))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImageFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame.png", "frame.qoi", "frame.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			test.That(t, WriteImageToFile(path, testImage()), test.ShouldBeNil)

			img, err := ReadImageFromFile(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
			test.That(t, img.Bounds().Dy(), test.ShouldEqual, 8)
			test.That(t, NewColorFromColor(img.At(3, 3)), test.ShouldResemble, Red)
			test.That(t, NewColorFromColor(img.At(0, 0)), test.ShouldResemble, White)
		})
	}

	_, err := ReadImageFromFile(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}
