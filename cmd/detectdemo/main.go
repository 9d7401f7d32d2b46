// Package main runs object detection over a directory of images and displays the results.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/detectdemo/config"
	"go.viam.com/detectdemo/demo"
	"go.viam.com/detectdemo/logging"
	"go.viam.com/detectdemo/metrics"
)

const (
	flagConfig  = "config"
	flagImages  = "images"
	flagLabels  = "labels"
	flagOut     = "out"
	flagDisplay = "display"
	flagDebug   = "debug"
	flagTrace   = "trace"
)

var logger = logging.NewLogger("detectdemo")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	return newApp(logger).RunContext(ctx, args)
}

func newApp(logger logging.Logger) *cli.App {
	return &cli.App{
		Name:            "detectdemo",
		Usage:           "detect objects in a directory of images and show the results",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagImages,
				Usage: "read images from `DIR`",
			},
			&cli.StringFlag{
				Name:  flagLabels,
				Usage: "read class labels from `FILE`, one per line",
			},
			&cli.StringFlag{
				Name:  flagOut,
				Usage: "write annotated frames to `DIR`",
			},
			&cli.StringFlag{
				Name:  flagDisplay,
				Usage: "how to show results: frames, table or log",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagTrace,
				Usage: "log pipeline spans and metric views",
			},
		},
		Action: func(c *cli.Context) error {
			return runAction(c, logger)
		},
	}
}

func runAction(c *cli.Context, logger logging.Logger) error {
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	unregister, err := metrics.RegisterViews()
	if err != nil {
		return err
	}
	defer unregister()
	if c.Bool(flagTrace) {
		defer metrics.EnableLoggingExport(logger.Sublogger("telemetry"))()
	}

	res, err := demo.Run(c.Context, cfg, logger,
		demo.WithTableWriter(os.Stdout),
		demo.WithCloseHook(func() { logger.Info("display closed, shutting down") }),
	)
	if res != nil {
		logger.Infow("run finished", "run", res.RunID, "state", res.State, "delivered", res.Delivered)
	}
	return err
}

// loadConfig reads the config file, if any, and applies flag overrides on top of it.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := config.Defaults()
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path, logger)
		if err != nil {
			return nil, err
		}
		cfg = *read
	}
	if c.IsSet(flagImages) {
		cfg.ImagesDir = c.String(flagImages)
	}
	if c.IsSet(flagLabels) {
		cfg.LabelsPath = c.String(flagLabels)
	}
	if c.IsSet(flagOut) {
		cfg.OutputDir = c.String(flagOut)
	}
	if c.IsSet(flagDisplay) {
		cfg.Display = c.String(flagDisplay)
	}
	return &cfg, nil
}
