// Package ml provides some fundamental machine learning primitives.
package ml

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Channels is the number of color channels in an image tensor.
const Channels = 3

// ImageToTensor scales img to width×height and returns it as a CHW float32 tensor with values in
// [0, 1]. Alpha is dropped.
func ImageToTensor(img image.Image, width, height uint) (*tensor.Dense, error) {
	if img == nil {
		return nil, errors.New("cannot extract features from a nil image")
	}
	if width == 0 || height == 0 {
		return nil, errors.Errorf("invalid tensor size %dx%d", width, height)
	}
	if img.Bounds().Empty() {
		return nil, errors.Errorf("cannot extract features from an empty image %v", img.Bounds())
	}
	resized := img
	if uint(img.Bounds().Dx()) != width || uint(img.Bounds().Dy()) != height {
		resized = resize.Resize(width, height, img, resize.Bilinear)
	}

	w, h := int(width), int(height)
	plane := w * h
	data := make([]float32, Channels*plane)
	bounds := resized.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*w + x
			data[i] = float32(r) / 0xffff
			data[plane+i] = float32(g) / 0xffff
			data[2*plane+i] = float32(b) / 0xffff
		}
	}
	return tensor.New(tensor.WithShape(Channels, h, w), tensor.WithBacking(data)), nil
}

// NewImageFeatureExtractor returns a function that turns images into model input tensors.
func NewImageFeatureExtractor(width, height uint) func(image.Image) (*tensor.Dense, error) {
	return func(img image.Image) (*tensor.Dense, error) {
		return ImageToTensor(img, width, height)
	}
}

// StackBatch joins same-shaped CHW tensors into one NCHW tensor.
func StackBatch(features []*tensor.Dense) (*tensor.Dense, error) {
	if len(features) == 0 {
		return nil, errors.New("cannot stack an empty batch")
	}
	shape := features[0].Shape().Clone()
	if len(shape) != 3 {
		return nil, errors.Errorf("expected a CHW tensor but got shape %v", shape)
	}
	size := shape.TotalSize()
	data := make([]float32, 0, len(features)*size)
	for i, f := range features {
		if !f.Shape().Eq(shape) {
			return nil, errors.Errorf("tensor %d has shape %v, expected %v", i, f.Shape(), shape)
		}
		backing, ok := f.Data().([]float32)
		if !ok {
			return nil, errors.Errorf("tensor %d holds %T, expected []float32", i, f.Data())
		}
		data = append(data, backing...)
	}
	return tensor.New(tensor.WithShape(len(features), shape[0], shape[1], shape[2]), tensor.WithBacking(data)), nil
}
