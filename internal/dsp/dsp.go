// Package dsp holds the building blocks shared by every model architecture:
// the DSP contract, causal convolution layers, activations and input history.
package dsp

// UnknownSampleRate is reported when a model file does not declare its rate.
const UnknownSampleRate = -1.0

// DefaultMaxBlockSize is the block size assumed until Reset says otherwise.
const DefaultMaxBlockSize = 512

// DSP is a loaded model ready to process mono audio. Implementations are not
// safe for concurrent use.
type DSP interface {
	// Process reads len(input) frames and writes the same number to output.
	Process(input, output []float32)
	// Reset clears internal state and sizes scratch buffers for blocks of up to
	// maxBlockSize frames.
	Reset(sampleRate float64, maxBlockSize int)
	// Prewarm runs silence through the model until its state settles.
	Prewarm()
	ExpectedSampleRate() float64
	PrewarmSamples() int
	ReceptiveField() int
}

// Base carries the bookkeeping every architecture shares.
type Base struct {
	expectedSampleRate float64
	sampleRate         float64
	maxBlockSize       int
	prewarmSamples     int
}

func NewBase(expectedSampleRate float64) Base {
	return Base{
		expectedSampleRate: expectedSampleRate,
		sampleRate:         expectedSampleRate,
		maxBlockSize:       DefaultMaxBlockSize,
	}
}

func (b *Base) ExpectedSampleRate() float64 { return b.expectedSampleRate }

// SampleRate is the host rate given to the last Reset.
func (b *Base) SampleRate() float64 { return b.sampleRate }

func (b *Base) MaxBlockSize() int { return b.maxBlockSize }

func (b *Base) PrewarmSamples() int { return b.prewarmSamples }

func (b *Base) SetPrewarmSamples(n int) { b.prewarmSamples = max(n, 0) }

// ResetBase records the host configuration.
func (b *Base) ResetBase(sampleRate float64, maxBlockSize int) {
	b.sampleRate = sampleRate
	if maxBlockSize > 0 {
		b.maxBlockSize = maxBlockSize
	}
}

// RunPrewarm feeds d.PrewarmSamples() frames of silence through d in blocks
// of at most blockSize frames.
func RunPrewarm(d DSP, blockSize int) {
	remaining := d.PrewarmSamples()
	if remaining <= 0 {
		return
	}
	if blockSize <= 0 {
		blockSize = DefaultMaxBlockSize
	}
	in := make([]float32, min(blockSize, remaining))
	out := make([]float32, len(in))
	for remaining > 0 {
		n := min(len(in), remaining)
		d.Process(in[:n], out[:n])
		remaining -= n
	}
}
