// Package dataset provides batched sources of labeled images read from disk.
package dataset

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/pipeline"
	"go.viam.com/detectdemo/rimage"
	"go.viam.com/detectdemo/utils"
)

// Frame is the render payload of an image: the original as read from disk and where it came
// from.
type Frame struct {
	Path  string
	Image image.Image
}

// Entry is one labeled image: the scaled image features are computed from, and the original
// frame results are drawn on.
type Entry = pipeline.LabeledInput[image.Image, Frame]

// Options configure a DirectorySource.
type Options struct {
	BatchSize int
	// Width and Height are the size images are scaled to. Zero keeps the original size.
	Width, Height uint
	// DecodeWorkers bounds how many images of a batch are decoded at once. Zero uses
	// utils.ParallelFactor.
	DecodeWorkers int
	// Filter, if set, must accept a path for it to be part of the data set.
	Filter func(path string) bool
}

// DirectorySource lazily reads the images of a directory in file name order. Only files with a
// decodable image extension are used and subdirectories are ignored.
type DirectorySource struct {
	dir     string
	opts    Options
	batches [][]string
	next    int
	logger  logging.Logger
}

// NewDirectorySource lists dir and prepares its batches. Images are only decoded when their
// batch is requested.
func NewDirectorySource(dir string, opts Options, logger logging.Logger) (*DirectorySource, error) {
	if opts.BatchSize < 1 {
		return nil, errors.Errorf("batch size must be at least 1, got %d", opts.BatchSize)
	}
	if opts.DecodeWorkers <= 0 {
		opts.DecodeWorkers = utils.ParallelFactor
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list images in %q", dir)
	}

	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return filepath.Join(dir, e.Name()), !e.IsDir()
	})
	paths := lo.Filter(files, func(path string, _ int) bool {
		return rimage.IsImageFile(path) && (opts.Filter == nil || opts.Filter(path))
	})
	if len(paths) == 0 {
		logger.Warnw("no images found", "dir", dir)
	}
	logger.Debugw("data set ready", "dir", dir, "images", len(paths), "batch_size", opts.BatchSize)

	return &DirectorySource{
		dir:     dir,
		opts:    opts,
		batches: lo.Chunk(paths, opts.BatchSize),
		logger:  logger,
	}, nil
}

// Len returns the number of images in the data set.
func (s *DirectorySource) Len() int {
	return lo.SumBy(s.batches, func(b []string) int { return len(b) })
}

// Next decodes the next batch. It returns io.EOF once every batch was returned. A file that
// cannot be read or decoded fails the batch with a *pipeline.FeatureExtractionError.
func (s *DirectorySource) Next(ctx context.Context) (pipeline.Batch[Entry], error) {
	if s.next >= len(s.batches) {
		return pipeline.Batch[Entry]{}, io.EOF
	}
	index := s.next
	paths := s.batches[index]
	s.next++

	entries := make([]Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.DecodeWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := s.load(path)
			if err != nil {
				return &pipeline.FeatureExtractionError{Batch: index, Entry: i, Err: err}
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.Batch[Entry]{}, errors.Wrapf(err, "failed to load batch %d", index)
	}
	return pipeline.Batch[Entry]{Index: index, Entries: entries}, nil
}

func (s *DirectorySource) load(path string) (Entry, error) {
	original, err := rimage.ReadImageFromFile(path)
	if err != nil {
		return Entry{}, err
	}
	scaled := original
	if s.opts.Width > 0 && s.opts.Height > 0 {
		scaled = imaging.Resize(original, int(s.opts.Width), int(s.opts.Height), imaging.Linear)
	}
	return Entry{Data: scaled, Label: Frame{Path: path, Image: original}}, nil
}
