package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/pkg/nam"
)

var (
	modelPath  string
	modelsPath string
	blockSize  int64
	fastTanh   bool
	logLevel   string
	logFormat  string
	debug      bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to .nam file",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "models-path",
			Aliases:     []string{"path"},
			Usage:       "path to directory containing .nam models",
			Destination: &modelsPath,
		},
	}
}

func processingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "block",
			Aliases:     []string{"b"},
			Usage:       "frames per processing block",
			Value:       nam.DefaultMaxBlockSize,
			Destination: &blockSize,
		},
		&cli.BoolFlag{
			Name:        "fast-tanh",
			Usage:       "use the fast tanh approximation",
			Destination: &fastTanh,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
