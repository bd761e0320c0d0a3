package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/internal/logger"
	"github.com/samcharles93/namcore/pkg/nam"
)

type benchResult struct {
	Audio     time.Duration
	Durations []time.Duration
}

func (r benchResult) mean() time.Duration {
	if len(r.Durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range r.Durations {
		total += d
	}
	return total / time.Duration(len(r.Durations))
}

// realTimeFactor is processing time over audio time; below 1 keeps up.
func (r benchResult) realTimeFactor() float64 {
	if r.Audio <= 0 {
		return 0
	}
	return r.mean().Seconds() / r.Audio.Seconds()
}

func benchmarkCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		seconds    float64
	)

	flags := append(commonModelFlags(), processingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup runs",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "number of benchmark runs",
			Value:       3,
			Destination: &benchRuns,
		},
		&cli.Float64Flag{
			Name:        "seconds",
			Aliases:     []string{"s"},
			Usage:       "seconds of audio processed per run",
			Value:       10,
			Destination: &seconds,
		},
	)

	return &cli.Command{
		Name:  "benchmark",
		Usage: "Measure processing speed against real time",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig)

			path, err := resolveModelPath(modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
			}
			if seconds <= 0 || blockSize <= 0 || benchRuns <= 0 {
				return cli.Exit("error: --seconds, --block and --runs must be positive", 1)
			}

			log.Info("loading model for benchmark", "path", path)
			loadStart := time.Now()
			h, err := nam.Load(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer h.Release()
			loadTime := time.Since(loadStart)

			res, err := runBenchmark(ctx, h, seconds, int(blockSize), int(warmupRuns), int(benchRuns))
			if err != nil {
				return err
			}

			rtf := res.realTimeFactor()
			fmt.Printf("Model:        %s (%s)\n", path, h.Architecture())
			fmt.Printf("Sample rate:  %g Hz\n", h.ExpectedSampleRate())
			fmt.Printf("Block:        %d frames\n", blockSize)
			fmt.Printf("Fast tanh:    %t\n", fastTanh)
			fmt.Printf("Load:         %s\n", loadTime.Round(time.Microsecond))
			fmt.Printf("Audio:        %s per run\n", res.Audio.Round(time.Millisecond))
			for i, d := range res.Durations {
				fmt.Printf("Run %-2d        %s\n", i+1, d.Round(time.Microsecond))
			}
			fmt.Printf("Mean:         %s\n", res.mean().Round(time.Microsecond))
			if rtf > 0 {
				fmt.Printf("Real-time:    %.4f (%.1fx faster than real time)\n", rtf, 1/rtf)
			}
			return nil
		},
	}
}

// runBenchmark processes seconds of noise through h in blocks.
func runBenchmark(ctx context.Context, h *nam.Handle, seconds float64, block, warmup, runs int) (benchResult, error) {
	rate := h.ExpectedSampleRate()
	n := int(seconds * rate)
	rng := rand.New(rand.NewPCG(1, 2))
	in := make([]float32, n)
	for i := range in {
		in[i] = 0.5 * (2*rng.Float32() - 1)
	}
	out := make([]float32, block)

	h.Reset(rate, block)
	h.Prewarm()
	pass := func() {
		for pos := 0; pos < n; pos += block {
			end := min(pos+block, n)
			h.Process(in[pos:end], out[:end-pos])
		}
	}

	for range warmup {
		if err := ctx.Err(); err != nil {
			return benchResult{}, err
		}
		pass()
	}
	res := benchResult{Audio: time.Duration(seconds * float64(time.Second))}
	for range runs {
		if err := ctx.Err(); err != nil {
			return benchResult{}, err
		}
		start := time.Now()
		pass()
		res.Durations = append(res.Durations, time.Since(start))
	}
	return res, nil
}
