package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/detectdemo/logging"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	test.That(t, cfg.QueueCapacity, test.ShouldEqual, 20)
	test.That(t, time.Duration(cfg.IdleTimeout), test.ShouldEqual, 15*time.Second)
	test.That(t, cfg.BatchSize, test.ShouldEqual, 1)
	test.That(t, cfg.ScoreThreshold, test.ShouldEqual, 0.4)
	test.That(t, cfg.OverlapThreshold, test.ShouldEqual, 0.6)
	test.That(t, cfg.InputWidth, test.ShouldEqual, uint(608))
	test.That(t, cfg.InputHeight, test.ShouldEqual, uint(608))
	test.That(t, time.Duration(cfg.FramePace), test.ShouldEqual, 500*time.Millisecond)

	// defaults only lack the images directory
	err := cfg.Validate("config")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "images_dir")
	cfg.ImagesDir = "images"
	test.That(t, cfg.Validate("config"), test.ShouldBeNil)
}

func TestRead(t *testing.T) {
	t.Setenv("DETECTDEMO_IMAGES", "/data/yolo")
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"images_dir": "${DETECTDEMO_IMAGES}/images",
		"display": "table",
		"queue_capacity": 1,
		"idle_timeout": "250ms",
		"log_level": "debug"
	}`
	test.That(t, os.WriteFile(path, []byte(doc), 0o600), test.ShouldBeNil)

	cfg, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ImagesDir, test.ShouldEqual, "/data/yolo/images")
	test.That(t, cfg.Display, test.ShouldEqual, "table")
	test.That(t, cfg.QueueCapacity, test.ShouldEqual, 1)
	test.That(t, time.Duration(cfg.IdleTimeout), test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.LogLevel, test.ShouldEqual, logging.DEBUG)
	test.That(t, cfg.ScoreThreshold, test.ShouldEqual, 0.4)
	test.That(t, cfg.Validate("config"), test.ShouldBeNil)

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, doc := range []string{
		`{"images_dir": 5}`,
		`{"idle_timeout": 15}`,
		`{"idle_timeout": "soon"}`,
		`{"imagesdir": "typo"}`,
		`{"log_level": "loud"}`,
		`not json`,
	} {
		_, err := FromReader("inline", strings.NewReader(doc), logger)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.ImagesDir = "images"
		return cfg
	}
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"display", func(c *Config) { c.Display = "window" }, "window"},
		{"output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"input size", func(c *Config) { c.InputHeight = 0 }, "input size"},
		{"batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"decode workers", func(c *Config) { c.DecodeWorkers = -1 }, "decode_workers"},
		{"capacity", func(c *Config) { c.QueueCapacity = 0 }, "queue_capacity"},
		{"idle timeout", func(c *Config) { c.IdleTimeout = 0 }, "idle_timeout"},
		{"pace", func(c *Config) { c.FramePace = Duration(-time.Second) }, "frame_pace"},
		{"score", func(c *Config) { c.ScoreThreshold = 1.5 }, "score_threshold"},
		{"overlap", func(c *Config) { c.OverlapThreshold = -0.1 }, "overlap_threshold"},
		{"area", func(c *Config) { c.MinArea = 2 }, "min_area"},
		{"blob threshold", func(c *Config) { c.BlobThreshold = 300 }, "blob_threshold"},
		{"blob pixels", func(c *Config) { c.BlobMinPixels = -1 }, "blob_min_pixels"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate("config")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.field)
		})
	}

	cfg := valid()
	cfg.Display = "log"
	cfg.OutputDir = ""
	test.That(t, cfg.Validate("config"), test.ShouldBeNil)
}

func TestDurationJSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	out, err := d.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"1.5s"`)

	var back Duration
	test.That(t, back.UnmarshalJSON(out), test.ShouldBeNil)
	test.That(t, back, test.ShouldEqual, d)
}
