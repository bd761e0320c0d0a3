package arch

import (
	"github.com/samcharles93/namcore/internal/dsp"
	"github.com/samcharles93/namcore/internal/namfile"
	"github.com/samcharles93/namcore/internal/tensor"
)

// lstmPrewarmSeconds of silence settle the recurrent state after a reset.
const lstmPrewarmSeconds = 0.5

// lstmFallbackRate is used for prewarm sizing when the file has no rate.
const lstmFallbackRate = 48000

type lstmConfig struct {
	NumLayers  int `json:"num_layers"`
	InputSize  int `json:"input_size"`
	HiddenSize int `json:"hidden_size"`
}

type lstmCell struct {
	w      tensor.Mat // 4H x (I+H), gates ordered i, f, g, o
	b      []float32
	xh     []float32
	c      []float32
	h0, c0 []float32
	ifgo   []float32
	tmp    []float32
	in     int
	hidden int
}

func newLSTMCell(in, hidden int, r *dsp.WeightReader) (*lstmCell, error) {
	cell := &lstmCell{
		w:      tensor.NewMat(4*hidden, in+hidden),
		xh:     make([]float32, in+hidden),
		c:      make([]float32, hidden),
		ifgo:   make([]float32, 4*hidden),
		tmp:    make([]float32, hidden),
		in:     in,
		hidden: hidden,
	}
	w, err := r.Take(cell.w.R * cell.w.C)
	if err != nil {
		return nil, err
	}
	copy(cell.w.Data, w)
	b, err := r.Take(4 * hidden)
	if err != nil {
		return nil, err
	}
	cell.b = append([]float32(nil), b...)
	h0, err := r.Take(hidden)
	if err != nil {
		return nil, err
	}
	cell.h0 = append([]float32(nil), h0...)
	c0, err := r.Take(hidden)
	if err != nil {
		return nil, err
	}
	cell.c0 = append([]float32(nil), c0...)
	cell.reset()
	return cell, nil
}

func (c *lstmCell) reset() {
	clear(c.xh[:c.in])
	copy(c.xh[c.in:], c.h0)
	copy(c.c, c.c0)
}

func (c *lstmCell) step(x []float32, sigmoid, tanh dsp.Activation) []float32 {
	copy(c.xh[:c.in], x)
	tensor.MatVec(c.ifgo, &c.w, c.xh)
	tensor.Add(c.ifgo, c.b)

	h := c.hidden
	sigmoid.Apply(c.ifgo[:2*h])
	tanh.Apply(c.ifgo[2*h : 3*h])
	sigmoid.Apply(c.ifgo[3*h:])

	ig, fg, gg, og := c.ifgo[:h], c.ifgo[h:2*h], c.ifgo[2*h:3*h], c.ifgo[3*h:]
	for j := 0; j < h; j++ {
		c.c[j] = fg[j]*c.c[j] + ig[j]*gg[j]
	}
	copy(c.tmp, c.c)
	tanh.Apply(c.tmp)
	hidden := c.xh[c.in:]
	for j := 0; j < h; j++ {
		hidden[j] = og[j] * c.tmp[j]
	}
	return hidden
}

// LSTM runs stacked LSTM cells sample by sample and projects the last
// hidden state to the output.
type LSTM struct {
	dsp.Base
	cells      []*lstmCell
	input      []float32
	headWeight []float32
	headBias   float32
	sigmoid    dsp.Activation
	tanh       dsp.Activation
}

func buildLSTM(f *namfile.File, rate float64) (dsp.DSP, error) {
	var cfg lstmConfig
	if err := f.DecodeConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.NumLayers <= 0 || cfg.InputSize <= 0 || cfg.HiddenSize <= 0 {
		return nil, invalidConfig("num_layers, input_size and hidden_size must be positive, got %d/%d/%d",
			cfg.NumLayers, cfg.InputSize, cfg.HiddenSize)
	}
	sigmoid, err := dsp.GetActivation("Sigmoid")
	if err != nil {
		return nil, err
	}
	tanh, err := dsp.GetActivation("Tanh")
	if err != nil {
		return nil, err
	}

	r := dsp.NewWeightReader(f.Weights)
	l := &LSTM{
		Base:    dsp.NewBase(rate),
		input:   make([]float32, cfg.InputSize),
		sigmoid: sigmoid,
		tanh:    tanh,
	}
	for i := 0; i < cfg.NumLayers; i++ {
		in := cfg.HiddenSize
		if i == 0 {
			in = cfg.InputSize
		}
		cell, err := newLSTMCell(in, cfg.HiddenSize, r)
		if err != nil {
			return nil, err
		}
		l.cells = append(l.cells, cell)
	}
	hw, err := r.Take(cfg.HiddenSize)
	if err != nil {
		return nil, err
	}
	l.headWeight = append([]float32(nil), hw...)
	if l.headBias, err = r.Next(); err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}

	prewarmRate := rate
	if prewarmRate <= 0 {
		prewarmRate = lstmFallbackRate
	}
	l.SetPrewarmSamples(int(lstmPrewarmSeconds * prewarmRate))
	return l, nil
}

func (l *LSTM) Process(input, output []float32) {
	for t, s := range input {
		l.input[0] = s
		x := l.input
		for _, cell := range l.cells {
			x = cell.step(x, l.sigmoid, l.tanh)
		}
		output[t] = l.headBias + tensor.Dot(l.headWeight, x)
	}
}

func (l *LSTM) Reset(sampleRate float64, maxBlockSize int) {
	l.ResetBase(sampleRate, maxBlockSize)
	for _, cell := range l.cells {
		cell.reset()
	}
}

func (l *LSTM) Prewarm() { dsp.RunPrewarm(l, l.MaxBlockSize()) }

// ReceptiveField is 1: the recurrence carries all longer context.
func (l *LSTM) ReceptiveField() int { return 1 }
