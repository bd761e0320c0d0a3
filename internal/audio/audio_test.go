package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func sine(n, rate int, freq, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func rms(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

func writeClip(t *testing.T, c *Clip, depth int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := WriteWAV(f, c, depth); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}
	return path
}

func readClip(t *testing.T, path string) *Clip {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	c, err := ReadWAV(f)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	return c
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	for _, depth := range []int{16, 24, 32} {
		src := &Clip{SampleRate: 48000, Samples: sine(480, 48000, 440, 0.8)}
		got := readClip(t, writeClip(t, src, depth))
		if got.SampleRate != 48000 || got.Channels != 1 || got.BitDepth != depth {
			t.Fatalf("%d-bit: header = %d Hz, %d ch, %d bit", depth, got.SampleRate, got.Channels, got.BitDepth)
		}
		if len(got.Samples) != len(src.Samples) {
			t.Fatalf("%d-bit: len = %d, want %d", depth, len(got.Samples), len(src.Samples))
		}
		tol := 1.5 / math.Exp2(float64(depth-1))
		for i := range src.Samples {
			if d := math.Abs(float64(got.Samples[i] - src.Samples[i])); d > tol+1e-7 {
				t.Fatalf("%d-bit: sample %d = %v, want %v", depth, i, got.Samples[i], src.Samples[i])
			}
		}
	}
}

func TestWriteWAVClips(t *testing.T) {
	t.Parallel()

	src := &Clip{SampleRate: 44100, Samples: []float32{2, -2, 0.5}}
	got := readClip(t, writeClip(t, src, 16))
	if got.Samples[0] < 0.999 || got.Samples[1] != -1 {
		t.Fatalf("clipped samples = %v", got.Samples)
	}
}

func TestReadWAVDownmixesStereo(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:   []int{16384, 0, -16384, -16384, 8192, -8192},
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	c := readClip(t, path)
	want := []float32{0.25, -0.5, 0}
	if c.Channels != 2 || len(c.Samples) != len(want) {
		t.Fatalf("Channels = %d, len = %d", c.Channels, len(c.Samples))
	}
	for i := range want {
		if c.Samples[i] != want[i] {
			t.Fatalf("Samples = %v, want %v", c.Samples, want)
		}
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte(strings.Repeat("not a wav ", 10)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := ReadWAV(f); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("ReadWAV() error = %v, want %v", err, ErrInvalidWAV)
	}
}

func TestWriteWAVRejectsDepth(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	c := &Clip{SampleRate: 48000, Samples: []float32{0}}
	for _, depth := range []int{8, 12} {
		if err := WriteWAV(f, c, depth); !errors.Is(err, ErrUnsupportedWAV) {
			t.Fatalf("WriteWAV(%d) error = %v, want %v", depth, err, ErrUnsupportedWAV)
		}
	}
}

func TestClipDuration(t *testing.T) {
	t.Parallel()

	c := &Clip{SampleRate: 48000, Samples: make([]float32, 24000)}
	if c.Duration() != 500*time.Millisecond {
		t.Fatalf("Duration() = %v, want 500ms", c.Duration())
	}
	var nilClip *Clip
	if nilClip.Duration() != 0 {
		t.Fatal("nil clip Duration() should be 0")
	}
}

func TestResample(t *testing.T) {
	t.Parallel()

	in := sine(4800, 48000, 440, 0.5)
	out, err := Resample(in, 48000, 44100)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(out) != 4410 {
		t.Fatalf("len = %d, want 4410", len(out))
	}
	// compare level away from the edges
	got := rms(out[1000:3400])
	want := 0.5 / math.Sqrt2
	if math.Abs(got-want) > 0.05 {
		t.Fatalf("rms = %v, want about %v", got, want)
	}

	same, err := Resample(in, 48000, 48000)
	if err != nil || len(same) != len(in) {
		t.Fatalf("Resample() same rate = %d samples, %v", len(same), err)
	}
	same[0] = 99
	if in[0] == 99 {
		t.Fatal("Resample() same rate must copy")
	}
	if _, err := Resample(in, 0, 48000); err == nil {
		t.Fatal("Resample() with zero rate expected error")
	}
}

func peakIndex(x []float32) int {
	idx, best := 0, float32(0)
	for i, v := range x {
		if v < 0 {
			v = -v
		}
		if v > best {
			idx, best = i, v
		}
	}
	return idx
}

func TestResampleKeepsTiming(t *testing.T) {
	t.Parallel()

	in := make([]float32, 20000)
	in[10000] = 1
	down, err := Resample(in, 48000, 44100)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	// 10000 * 44100 / 48000 = 9187.5
	if got := peakIndex(down); got < 9187 || got > 9188 {
		t.Fatalf("impulse at %d, want 9187 or 9188", got)
	}

	clip := make([]float32, 40000)
	clip[20000] = 1
	up, err := Resample(clip, 44100, 48000)
	if err != nil {
		t.Fatalf("Resample() up error = %v", err)
	}
	back, err := Resample(up, 48000, 44100)
	if err != nil {
		t.Fatalf("Resample() back error = %v", err)
	}
	if len(back) != len(clip) {
		t.Fatalf("round trip len = %d, want %d", len(back), len(clip))
	}
	if got := peakIndex(back); got < 19999 || got > 20001 {
		t.Fatalf("round trip impulse at %d, want 20000", got)
	}
}

func TestResampleKeepsStart(t *testing.T) {
	t.Parallel()

	in := make([]float32, 4800)
	in[0] = 1
	out, err := Resample(in, 48000, 96000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if got := peakIndex(out); got > 1 {
		t.Fatalf("impulse at %d, want 0 or 1", got)
	}
}

func TestResampleClip(t *testing.T) {
	t.Parallel()

	c := &Clip{SampleRate: 44100, Samples: sine(441, 44100, 100, 0.3), BitDepth: 24}
	if got, err := ResampleClip(c, 44100); err != nil || got != c {
		t.Fatalf("ResampleClip() same rate = %p, %v", got, err)
	}
	got, err := ResampleClip(c, 48000)
	if err != nil {
		t.Fatalf("ResampleClip() error = %v", err)
	}
	if got.SampleRate != 48000 || len(got.Samples) != 480 || got.BitDepth != 24 {
		t.Fatalf("ResampleClip() = %d Hz, %d samples, %d bit", got.SampleRate, len(got.Samples), got.BitDepth)
	}
}

type recorder struct {
	blocks []int
}

func (r *recorder) Process(in, out []float32) {
	r.blocks = append(r.blocks, len(in))
	for i, v := range in {
		out[i] = 2 * v
	}
}

func TestProcessBlocks(t *testing.T) {
	t.Parallel()

	in := []float32{1, 2, 3, 4, 5, 6, 7}
	r := &recorder{}
	out := ProcessBlocks(r, in, 3)
	if len(r.blocks) != 3 || r.blocks[0] != 3 || r.blocks[2] != 1 {
		t.Fatalf("blocks = %v, want [3 3 1]", r.blocks)
	}
	for i := range in {
		if out[i] != 2*in[i] {
			t.Fatalf("out = %v", out)
		}
	}

	r = &recorder{}
	ProcessBlocks(r, in, 0)
	if len(r.blocks) != 1 || r.blocks[0] != len(in) {
		t.Fatalf("blocks with size 0 = %v, want one block", r.blocks)
	}
}

func TestFloat32LE(t *testing.T) {
	t.Parallel()

	want := []float32{0, -1, 0.5, float32(math.Inf(1))}
	b := EncodeFloat32LE(nil, want)
	if len(b) != 16 {
		t.Fatalf("len = %d, want 16", len(b))
	}
	if b[4] != 0 || b[7] != 0xbf {
		t.Fatalf("-1 encoded as % x", b[4:8])
	}
	got, err := DecodeFloat32LE(b)
	if err != nil {
		t.Fatalf("DecodeFloat32LE() error = %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DecodeFloat32LE() = %v, want %v", got, want)
		}
	}
	if _, err := DecodeFloat32LE(b[:5]); err == nil {
		t.Fatal("DecodeFloat32LE() with partial sample expected error")
	}
}

func TestPeak(t *testing.T) {
	t.Parallel()

	if p := Peak([]float32{0.1, -0.7, 0.3}); p != 0.7 {
		t.Fatalf("Peak() = %v, want 0.7", p)
	}
}
