package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/internal/config"
	"github.com/samcharles93/namcore/pkg/nam"
)

// fileConfig is the config file read before any command runs.
var fileConfig config.Config

func applyLoggingConfig(c *cli.Command, cfg config.Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyModelConfig applies config file defaults to the model and processing
// flags that were not set on the command line.
func applyModelConfig(c *cli.Command, cfg config.Config) {
	if cfg.ModelsDir != "" && !c.IsSet("models-path") {
		modelsPath = cfg.ModelsDir
	}
	if cfg.BlockSize != nil && !c.IsSet("block") {
		blockSize = *cfg.BlockSize
	}
	if cfg.FastTanh != nil && !c.IsSet("fast-tanh") {
		fastTanh = *cfg.FastTanh
	}
	if fastTanh {
		nam.EnableFastTanh()
	}
}

func applyServeConfig(c *cli.Command, cfg config.Config, addr *string) {
	applyModelConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
