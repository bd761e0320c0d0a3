package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/internal/audio"
	"github.com/samcharles93/namcore/internal/logger"
	"github.com/samcharles93/namcore/pkg/nam"
)

func renderCmd() *cli.Command {
	var (
		input    string
		output   string
		bitDepth int64
	)

	flags := append(commonModelFlags(), processingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "input WAV file",
			Required:    true,
			Destination: &input,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output WAV file (default: <input>_nam.wav)",
			Destination: &output,
		},
		&cli.Int64Flag{
			Name:        "bit-depth",
			Usage:       "output bit depth (16, 24, 32); 0 keeps the input depth",
			Destination: &bitDepth,
		},
	)

	return &cli.Command{
		Name:  "render",
		Usage: "Process a WAV file through a model",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig)

			path, err := resolveModelPath(modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
			}
			clip, err := readWAVFile(input)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			h, err := nam.Load(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer h.Release()

			log.Info("rendering", "model", path, "input", input,
				"input_rate", clip.SampleRate, "model_rate", h.ExpectedSampleRate(),
				"duration", clip.Duration())
			h.Reset(h.ExpectedSampleRate(), int(blockSize))
			h.Prewarm()

			out, err := renderThrough(h, h.ExpectedSampleRate(), clip, int(blockSize))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if peak := audio.Peak(out.Samples); peak > 1 {
				log.Warn("output clips", "peak_db", 20*math.Log10(float64(peak)))
			}

			if output == "" {
				output = defaultOutputPath(input)
			}
			depth := int(bitDepth)
			if depth == 0 {
				depth = outputDepth(clip.BitDepth)
			}
			if err := writeWAVFile(output, out, depth); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("render complete", "output", output, "bit_depth", depth)
			return nil
		},
	}
}

// renderThrough converts clip to the model rate, processes it in blocks
// and converts the result back to the clip's rate.
func renderThrough(p audio.Processor, modelRate float64, clip *audio.Clip, block int) (*audio.Clip, error) {
	rate := int(math.Round(modelRate))
	in, err := audio.ResampleClip(clip, rate)
	if err != nil {
		return nil, err
	}
	processed := audio.ProcessBlocks(p, in.Samples, block)
	samples, err := audio.Resample(processed, rate, clip.SampleRate)
	if err != nil {
		return nil, err
	}
	return &audio.Clip{
		SampleRate: clip.SampleRate,
		Samples:    samples,
		Channels:   1,
		BitDepth:   clip.BitDepth,
	}, nil
}

// outputDepth keeps supported input depths and writes 24-bit otherwise.
func outputDepth(in int) int {
	switch in {
	case 16, 24, 32:
		return in
	default:
		return 24
	}
}

func readWAVFile(path string) (*audio.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	clip, err := audio.ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

func writeWAVFile(path string, clip *audio.Clip, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f, clip, bitDepth); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
