package arch

import (
	"github.com/samcharles93/namcore/internal/dsp"
	"github.com/samcharles93/namcore/internal/namfile"
	"github.com/samcharles93/namcore/internal/tensor"
)

type linearConfig struct {
	ReceptiveField int  `json:"receptive_field"`
	Bias           bool `json:"bias"`
}

// Linear is a single FIR filter over the last ReceptiveField samples.
type Linear struct {
	dsp.Base
	history *dsp.History
	weight  []float32
	bias    float32
}

func buildLinear(f *namfile.File, rate float64) (dsp.DSP, error) {
	var cfg linearConfig
	if err := f.DecodeConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.ReceptiveField <= 0 {
		return nil, invalidConfig("receptive_field must be positive, got %d", cfg.ReceptiveField)
	}

	r := dsp.NewWeightReader(f.Weights)
	w, err := r.Take(cfg.ReceptiveField)
	if err != nil {
		return nil, err
	}
	l := &Linear{
		Base:    dsp.NewBase(rate),
		history: dsp.NewHistory(1, cfg.ReceptiveField-1),
		weight:  append([]float32(nil), w...),
	}
	if cfg.Bias {
		if l.bias, err = r.Next(); err != nil {
			return nil, err
		}
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	l.SetPrewarmSamples(cfg.ReceptiveField)
	return l, nil
}

func (l *Linear) Process(input, output []float32) {
	n := len(input)
	l.history.Advance(n)
	copy(l.history.Span(0, n), input)
	rf := len(l.weight)
	for t := 0; t < n; t++ {
		output[t] = l.bias + tensor.Dot(l.weight, l.history.Span(t-rf+1, t+1))
	}
}

func (l *Linear) Reset(sampleRate float64, maxBlockSize int) {
	l.ResetBase(sampleRate, maxBlockSize)
	l.history.Reset()
}

func (l *Linear) Prewarm() { dsp.RunPrewarm(l, l.MaxBlockSize()) }

func (l *Linear) ReceptiveField() int { return len(l.weight) }
