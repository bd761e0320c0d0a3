package nam

import (
	"fmt"
	"math"
	"sync"
)

// Modeler owns at most one model at a time and processes buffers in place.
// It is safe for concurrent use; model swaps and processing are serialized.
type Modeler struct {
	mu        sync.Mutex
	handle    *Handle
	path      string
	maxBuffer int
	scratch   []float32
	gain      float32
	target    *float64
}

// ModelerOption configures a Modeler.
type ModelerOption func(*Modeler)

// WithMaximumBufferSize sets the block size models are prepared for.
func WithMaximumBufferSize(n int) ModelerOption {
	return func(m *Modeler) {
		if n > 0 {
			m.maxBuffer = n
		}
	}
}

// WithNormalizedOutput scales output so models that declare their loudness
// play back at targetDB. Models without a loudness value are left as is.
func WithNormalizedOutput(targetDB float64) ModelerOption {
	return func(m *Modeler) {
		m.target = &targetDB
	}
}

// NewModeler returns a Modeler without a model. Creating one switches tanh
// activations of subsequently loaded models to the fast approximation.
func NewModeler(opts ...ModelerOption) *Modeler {
	EnableFastTanh()
	m := &Modeler{maxBuffer: DefaultMaxBlockSize, gain: 1}
	for _, opt := range opts {
		opt(m)
	}
	m.scratch = make([]float32, m.maxBuffer)
	return m
}

// SetModel loads the model at path and swaps it in, releasing the previous
// one. On failure the current model is kept.
func (m *Modeler) SetModel(path string) error {
	h, err := Load(path)
	if err != nil {
		return fmt.Errorf("set model: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swap(h, path)
	return nil
}

// SetModelBytes is SetModel for an in-memory model; name is reported by
// ModelPath.
func (m *Modeler) SetModelBytes(name string, data []byte) error {
	h, err := LoadBytes(data)
	if err != nil {
		return fmt.Errorf("set model: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swap(h, name)
	return nil
}

func (m *Modeler) swap(h *Handle, path string) {
	m.handle.Release()
	m.handle = h
	m.path = path
	m.gain = 1
	if m.target != nil {
		if l := h.Metadata().Loudness; l != nil {
			m.gain = float32(math.Pow(10, (*m.target-*l)/20))
		}
	}
	m.resetAndPrewarm()
}

// ProcessBuffer replaces buf with the model output. Without a model the
// buffer is left untouched. A buffer larger than the current maximum raises
// the maximum and re-prewarms the model first.
func (m *Modeler) ProcessBuffer(buf []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil || len(buf) == 0 {
		return
	}
	if len(buf) > m.maxBuffer {
		m.maxBuffer = len(buf)
		m.resetAndPrewarm()
	}
	if cap(m.scratch) < len(buf) {
		m.scratch = make([]float32, len(buf))
	}
	out := m.scratch[:len(buf)]
	m.handle.Process(buf, out)
	if m.gain != 1 {
		for i := range out {
			out[i] *= m.gain
		}
	}
	copy(buf, out)
}

// ExpectedSampleRate is the current model's rate, or 0 without a model.
func (m *Modeler) ExpectedSampleRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle.ExpectedSampleRate()
}

// ModelPath returns the path of the current model, or "" without one.
func (m *Modeler) ModelPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

func (m *Modeler) MaximumBufferSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxBuffer
}

// Gain is the linear output gain applied by loudness normalization.
func (m *Modeler) Gain() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// ResetAndPrewarm clears the model state.
func (m *Modeler) ResetAndPrewarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetAndPrewarm()
}

func (m *Modeler) resetAndPrewarm() {
	if m.handle == nil {
		return
	}
	m.handle.Reset(m.handle.ExpectedSampleRate(), m.maxBuffer)
	m.handle.Prewarm()
}

// Close releases the current model.
func (m *Modeler) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle.Release()
	m.handle = nil
	m.path = ""
	return nil
}
