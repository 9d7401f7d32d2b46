// Package inference runs object detection models on batches of image tensors.
package inference

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/detectdemo/ml"
	"go.viam.com/detectdemo/utils"
	"go.viam.com/detectdemo/vision/objectdetection"
)

// Engine is an object detection model. Infer takes an NCHW batch and returns the raw detections
// of every image in the batch, in order, before any filtering.
type Engine interface {
	Infer(ctx context.Context, batch *tensor.Dense) ([][]objectdetection.Detection, error)
	Close(ctx context.Context) error
}

// BatchFunc adapts an engine to take one feature tensor per image. It stacks the features,
// runs the engine and checks that one result came back per image.
func BatchFunc(engine Engine) func(context.Context, []*tensor.Dense) ([][]objectdetection.Detection, error) {
	return func(ctx context.Context, features []*tensor.Dense) ([][]objectdetection.Detection, error) {
		batch, err := ml.StackBatch(features)
		if err != nil {
			return nil, err
		}
		results, err := engine.Infer(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(results) != len(features) {
			return nil, utils.NewLengthMismatchError("engine", len(features), len(results))
		}
		return results, nil
	}
}

// splitBatch returns the float32 data of every image in an NCHW batch.
func splitBatch(batch *tensor.Dense) ([][]float32, int, int, error) {
	if batch == nil {
		return nil, 0, 0, errors.New("batch tensor is nil")
	}
	shape := batch.Shape()
	if len(shape) != 4 || shape[1] != ml.Channels {
		return nil, 0, 0, errors.Errorf("expected an Nx%dxHxW batch but got shape %v", ml.Channels, shape)
	}
	data, ok := batch.Data().([]float32)
	if !ok {
		return nil, 0, 0, utils.NewUnexpectedTypeError([]float32{}, batch.Data())
	}
	n, h, w := shape[0], shape[2], shape[3]
	size := ml.Channels * h * w
	images := make([][]float32, n)
	for i := range images {
		images[i] = data[i*size : (i+1)*size]
	}
	return images, w, h, nil
}
