package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/namcore/internal/audio"
	"github.com/samcharles93/namcore/pkg/nam"
)

// gainModel halves its input and declares 48 kHz.
const gainModel = `{
  "version": "0.5.4",
  "architecture": "Linear",
  "config": {"receptive_field": 1, "bias": false},
  "weights": [0.5],
  "sample_rate": 48000,
  "metadata": {"name": "half", "loudness": -12.0}
}`

func writeGainModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "half.nam")
	if err := os.WriteFile(path, []byte(gainModel), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func sine(rate, n int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestRenderThroughSameRate(t *testing.T) {
	t.Parallel()

	h, err := nam.Load(writeGainModel(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer h.Release()

	clip := &audio.Clip{SampleRate: 48000, Samples: sine(48000, 1000, 440), Channels: 1, BitDepth: 16}
	out, err := renderThrough(h, h.ExpectedSampleRate(), clip, 64)
	if err != nil {
		t.Fatalf("renderThrough() error = %v", err)
	}
	if len(out.Samples) != len(clip.Samples) {
		t.Fatalf("len = %d, want %d", len(out.Samples), len(clip.Samples))
	}
	for i, s := range clip.Samples {
		if out.Samples[i] != 0.5*s {
			t.Fatalf("sample %d = %v, want %v", i, out.Samples[i], 0.5*s)
		}
	}
}

func TestRenderThroughResamples(t *testing.T) {
	t.Parallel()

	h, err := nam.Load(writeGainModel(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer h.Release()

	clip := &audio.Clip{SampleRate: 44100, Samples: sine(44100, 4410, 220), Channels: 1, BitDepth: 24}
	out, err := renderThrough(h, h.ExpectedSampleRate(), clip, 128)
	if err != nil {
		t.Fatalf("renderThrough() error = %v", err)
	}
	if out.SampleRate != 44100 || len(out.Samples) != len(clip.Samples) {
		t.Fatalf("out = %d Hz, %d samples; want 44100 Hz, %d samples", out.SampleRate, len(out.Samples), len(clip.Samples))
	}
	if peak := audio.Peak(out.Samples[500:3900]); math.Abs(float64(peak)-0.25) > 0.02 {
		t.Fatalf("peak = %v, want about 0.25", peak)
	}
}

func TestRenderWAVFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "di.wav")
	src := &audio.Clip{SampleRate: 48000, Samples: sine(48000, 2400, 1000)}
	if err := writeWAVFile(in, src, 16); err != nil {
		t.Fatalf("writeWAVFile() error = %v", err)
	}
	clip, err := readWAVFile(in)
	if err != nil {
		t.Fatalf("readWAVFile() error = %v", err)
	}
	if clip.BitDepth != 16 || outputDepth(clip.BitDepth) != 16 {
		t.Fatalf("BitDepth = %d, want 16", clip.BitDepth)
	}
	if outputDepth(8) != 24 {
		t.Fatalf("outputDepth(8) = %d, want 24", outputDepth(8))
	}
	if _, err := readWAVFile(filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("readWAVFile(missing) error = nil, want error")
	}
}

func TestModelerProcessorNormalizes(t *testing.T) {
	t.Parallel()

	m := nam.NewModeler(nam.WithMaximumBufferSize(32), nam.WithNormalizedOutput(-18))
	defer func() { _ = m.Close() }()
	if err := m.SetModel(writeGainModel(t)); err != nil {
		t.Fatalf("SetModel() error = %v", err)
	}

	in := []float32{1, -1, 0.5}
	out := make([]float32, len(in))
	modelerProcessor{m}.Process(in, out)
	// -6 dB of normalization on top of the model's 0.5 gain.
	gain := 0.5 * math.Pow(10, -6.0/20)
	for i := range in {
		if math.Abs(float64(out[i])-gain*float64(in[i])) > 1e-6 {
			t.Fatalf("out = %v, want %v times input", out, gain)
		}
	}
	if in[0] != 1 {
		t.Fatalf("input modified: %v", in)
	}
}

func TestRunBenchmark(t *testing.T) {
	t.Parallel()

	h, err := nam.Load(writeGainModel(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer h.Release()

	res, err := runBenchmark(context.Background(), h, 0.1, 256, 1, 2)
	if err != nil {
		t.Fatalf("runBenchmark() error = %v", err)
	}
	if len(res.Durations) != 2 {
		t.Fatalf("runs = %d, want 2", len(res.Durations))
	}
	if res.realTimeFactor() <= 0 {
		t.Fatalf("realTimeFactor() = %v, want positive", res.realTimeFactor())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runBenchmark(ctx, h, 0.1, 256, 0, 1); err == nil {
		t.Fatal("runBenchmark() with cancelled context error = nil")
	}
}

func TestInspectModel(t *testing.T) {
	t.Parallel()

	r, err := inspectModel(writeGainModel(t))
	if err != nil {
		t.Fatalf("inspectModel() error = %v", err)
	}
	if r.Architecture != "Linear" || r.SampleRate != 48000 || !r.DeclaredSampleRate || r.Weights != 1 {
		t.Fatalf("inspectModel() = %+v", r)
	}
	if r.Metadata.Name != "half" {
		t.Fatalf("Metadata.Name = %q, want half", r.Metadata.Name)
	}
}

func TestInspectModelUndeclaredRate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "norate.nam")
	model := `{"version":"0.5.4","architecture":"Linear","config":{"receptive_field":1,"bias":false},"weights":[1.0]}`
	if err := os.WriteFile(path, []byte(model), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	r, err := inspectModel(path)
	if err != nil {
		t.Fatalf("inspectModel() error = %v", err)
	}
	if r.DeclaredSampleRate || r.SampleRate != nam.DefaultSampleRate {
		t.Fatalf("inspectModel() = %+v, want undeclared %v Hz", r, nam.DefaultSampleRate)
	}
}
