// Package config defines the configuration of a detection run.
package config

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/detectdemo/display"
	"go.viam.com/detectdemo/logging"
)

// Config describes a detection run.
type Config struct {
	ImagesDir  string `json:"images_dir"`
	LabelsPath string `json:"labels_path,omitempty"`
	OutputDir  string `json:"output_dir,omitempty"`
	Display    string `json:"display"`

	InputWidth    uint `json:"input_width"`
	InputHeight   uint `json:"input_height"`
	BatchSize     int  `json:"batch_size"`
	DecodeWorkers int  `json:"decode_workers,omitempty"`

	QueueCapacity int      `json:"queue_capacity"`
	IdleTimeout   Duration `json:"idle_timeout"`
	FramePace     Duration `json:"frame_pace"`

	ScoreThreshold   float64 `json:"score_threshold"`
	OverlapThreshold float64 `json:"overlap_threshold"`
	MinArea          float64 `json:"min_area,omitempty"`
	BlobThreshold    float64 `json:"blob_threshold,omitempty"`
	BlobMinPixels    int     `json:"blob_min_pixels,omitempty"`

	LogLevel logging.Level `json:"log_level"`
}

// Defaults returns the configuration the demo runs with when nothing is overridden.
func Defaults() Config {
	return Config{
		Display:          string(display.KindFrames),
		OutputDir:        "detections",
		InputWidth:       608,
		InputHeight:      608,
		BatchSize:        1,
		QueueCapacity:    20,
		IdleTimeout:      Duration(15 * time.Second),
		FramePace:        Duration(500 * time.Millisecond),
		ScoreThreshold:   0.4,
		OverlapThreshold: 0.6,
		BlobMinPixels:    16,
		LogLevel:         logging.INFO,
	}
}

// Validate returns an error naming the first invalid field. path prefixes field names in errors.
func (c *Config) Validate(path string) error {
	if c.ImagesDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "images_dir")
	}
	kind, err := display.ParseKind(c.Display)
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if kind == display.KindFrames && c.OutputDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "output_dir")
	}
	if c.InputWidth == 0 || c.InputHeight == 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("input size must be positive, got %dx%d", c.InputWidth, c.InputHeight))
	}
	if c.BatchSize < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("batch_size must be at least 1, got %d", c.BatchSize))
	}
	if c.DecodeWorkers < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("decode_workers cannot be negative, got %d", c.DecodeWorkers))
	}
	if c.QueueCapacity < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity))
	}
	if c.IdleTimeout <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("idle_timeout must be positive, got %s", c.IdleTimeout))
	}
	if c.FramePace < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("frame_pace cannot be negative, got %s", c.FramePace))
	}
	for name, v := range map[string]float64{
		"score_threshold":   c.ScoreThreshold,
		"overlap_threshold": c.OverlapThreshold,
		"min_area":          c.MinArea,
	} {
		if v < 0 || v > 1 {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be between 0 and 1, got %v", name, v))
		}
	}
	if c.BlobThreshold < 0 || c.BlobThreshold > 255 {
		return utils.NewConfigValidationError(path, errors.Errorf("blob_threshold must be between 0 and 255, got %v", c.BlobThreshold))
	}
	if c.BlobMinPixels < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("blob_min_pixels cannot be negative, got %d", c.BlobMinPixels))
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string in JSON, e.g. "15s".
type Duration time.Duration

// String returns the duration in Go notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "durations must be strings such as \"15s\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
