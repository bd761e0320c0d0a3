// Package nam loads Neural Amp Modeler models and runs audio through them.
//
// A Handle owns one loaded model. It is not safe for concurrent use: callers
// that share a handle between goroutines must serialize Process themselves,
// or use a Modeler.
//
//	h, err := nam.Load("models/plexi.nam")
//	if err != nil {
//		return err
//	}
//	defer h.Release()
//	h.Process(in, out)
package nam

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samcharles93/namcore/internal/arch"
	"github.com/samcharles93/namcore/internal/dsp"
	"github.com/samcharles93/namcore/internal/namfile"
)

// DefaultSampleRate is reported for models that do not declare a rate.
const DefaultSampleRate = 48000.0

// DefaultMaxBlockSize is the block size a fresh handle is prepared for.
// Larger blocks still work; scratch buffers grow on demand.
const DefaultMaxBlockSize = dsp.DefaultMaxBlockSize

// Metadata is the descriptive and level information stored in a model file.
type Metadata = namfile.Metadata

// Handle is a loaded model.
type Handle struct {
	model        dsp.DSP
	architecture string
	version      string
	metadata     Metadata
	weights      int
	declaredRate bool
}

// Load reads the model at path, builds it, and prepares it at its expected
// sample rate. On failure it returns a nil handle and a *LoadError whose Kind
// is ErrNullInput, ErrFileNotFound or ErrParseOrConstruction.
func Load(path string) (*Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fail(&LoadError{Kind: ErrNullInput})
	}
	f, err := namfile.Open(path)
	if err != nil {
		kind := ErrParseOrConstruction
		if errors.Is(err, namfile.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			kind = ErrFileNotFound
		}
		return nil, fail(&LoadError{Kind: kind, Path: path, Err: err})
	}
	h, err := build(f)
	if err != nil {
		return nil, fail(&LoadError{Kind: ErrParseOrConstruction, Path: path, Err: err})
	}
	diag().Debug("model loaded", "path", path, "arch", h.architecture,
		"sample_rate", h.ExpectedSampleRate(), "receptive_field", h.ReceptiveField())
	return h, nil
}

// LoadBytes is Load for a model already held in memory.
func LoadBytes(data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, fail(&LoadError{Kind: ErrNullInput})
	}
	f, err := namfile.Parse(data)
	if err != nil {
		return nil, fail(&LoadError{Kind: ErrParseOrConstruction, Err: err})
	}
	h, err := build(f)
	if err != nil {
		return nil, fail(&LoadError{Kind: ErrParseOrConstruction, Err: err})
	}
	return h, nil
}

func fail(e *LoadError) error {
	diag().Error("failed to load model", "path", e.Path, "error", e.Error())
	return e
}

func build(f *namfile.File) (h *Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("panic while building %s: %v", f.Architecture, r)
		}
	}()
	model, err := arch.Build(f)
	if err != nil {
		return nil, err
	}
	h = &Handle{
		model:        model,
		architecture: f.Architecture,
		version:      f.Version.String(),
		metadata:     f.Metadata,
		weights:      len(f.Weights),
		declaredRate: f.HasSampleRate(),
	}
	h.Reset(h.ExpectedSampleRate(), DefaultMaxBlockSize)
	h.Prewarm()
	return h, nil
}

// ExpectedSampleRate is the rate the model was trained at, DefaultSampleRate
// when the file does not say, and 0 for a nil or released handle.
func (h *Handle) ExpectedSampleRate() float64 {
	if h == nil || h.model == nil {
		return 0
	}
	if r := h.model.ExpectedSampleRate(); r > 0 {
		return r
	}
	return DefaultSampleRate
}

// Process runs len(input) frames through the model into output, which must
// be at least as long. It does nothing on a nil or released handle.
func (h *Handle) Process(input, output []float32) {
	if h == nil || h.model == nil || len(input) == 0 {
		return
	}
	h.model.Process(input, output[:len(input)])
}

// Release frees the model. It is safe on a nil handle and safe to repeat.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.model = nil
}

// Reset clears the model state and prepares it for blocks of up to
// maxBlockSize frames at sampleRate.
func (h *Handle) Reset(sampleRate float64, maxBlockSize int) {
	if h == nil || h.model == nil {
		return
	}
	h.model.Reset(sampleRate, maxBlockSize)
}

// Prewarm feeds silence until the model output settles.
func (h *Handle) Prewarm() {
	if h == nil || h.model == nil {
		return
	}
	h.model.Prewarm()
}

func (h *Handle) ReceptiveField() int {
	if h == nil || h.model == nil {
		return 0
	}
	return h.model.ReceptiveField()
}

func (h *Handle) PrewarmSamples() int {
	if h == nil || h.model == nil {
		return 0
	}
	return h.model.PrewarmSamples()
}

func (h *Handle) Architecture() string {
	if h == nil {
		return ""
	}
	return h.architecture
}

// Version is the model file format version, e.g. "0.5.4".
func (h *Handle) Version() string {
	if h == nil {
		return ""
	}
	return h.version
}

func (h *Handle) Metadata() Metadata {
	if h == nil {
		return Metadata{}
	}
	return h.metadata
}

// DeclaresSampleRate reports whether the model file states its rate. When it
// does not, ExpectedSampleRate falls back to DefaultSampleRate.
func (h *Handle) DeclaresSampleRate() bool {
	return h != nil && h.declaredRate
}

// WeightCount is the length of the model's weight vector.
func (h *Handle) WeightCount() int {
	if h == nil {
		return 0
	}
	return h.weights
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	return h == nil || h.model == nil
}

// EnableFastTanh makes models loaded afterwards use a rational tanh
// approximation.
func EnableFastTanh() { dsp.EnableFastTanh() }

// DisableFastTanh makes models loaded afterwards use exact tanh.
func DisableFastTanh() { dsp.DisableFastTanh() }

// Architectures lists the model architectures Load understands.
func Architectures() []string { return arch.Architectures() }
