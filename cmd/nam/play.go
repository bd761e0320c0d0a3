package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/internal/audio"
	"github.com/samcharles93/namcore/internal/logger"
	"github.com/samcharles93/namcore/pkg/nam"
)

func playCmd() *cli.Command {
	var (
		input     string
		dry       bool
		normalize float64
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
		&cli.BoolFlag{
			Name:        "dry",
			Usage:       "play the unprocessed input",
			Destination: &dry,
		},
		&cli.Float64Flag{
			Name:        "normalize",
			Usage:       "play models that declare their loudness at this level (dB)",
			Destination: &normalize,
		},
	)

	return &cli.Command{
		Name:  "play",
		Usage: "Process a WAV file through a model and play the result",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig)

			clip, err := readWAVFile(input)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if !dry {
				path, err := resolveModelPath(modelPath, modelsPath, os.Stdin, os.Stderr)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
				}
				opts := []nam.ModelerOption{nam.WithMaximumBufferSize(int(blockSize))}
				if cmd.IsSet("normalize") {
					opts = append(opts, nam.WithNormalizedOutput(normalize))
				}
				m := nam.NewModeler(opts...)
				defer func() { _ = m.Close() }()
				if err := m.SetModel(path); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				log.Info("model loaded", "path", path, "sample_rate", m.ExpectedSampleRate(), "gain", m.Gain())

				clip, err = renderThrough(modelerProcessor{m}, m.ExpectedSampleRate(), clip, int(blockSize))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			log.Info("playing", "input", input, "duration", clip.Duration(), "dry", dry)
			if err := playClip(ctx, clip); err != nil {
				return cli.Exit(fmt.Sprintf("error: playback: %v", err), 1)
			}
			return nil
		},
	}
}

// modelerProcessor adapts the in-place Modeler to audio.Processor.
type modelerProcessor struct {
	m *nam.Modeler
}

func (p modelerProcessor) Process(input, output []float32) {
	out := output[:len(input)]
	copy(out, input)
	p.m.ProcessBuffer(out)
}

func playClip(ctx context.Context, clip *audio.Clip) error {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   clip.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return err
	}
	<-ready

	pcm := audio.EncodeFloat32LE(make([]byte, 0, 4*len(clip.Samples)), clip.Samples)
	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer func() { _ = player.Close() }()
	player.Play()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}
