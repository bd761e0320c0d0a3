package arch

import (
	"github.com/goccy/go-json"

	"github.com/samcharles93/namcore/internal/dsp"
	"github.com/samcharles93/namcore/internal/namfile"
	"github.com/samcharles93/namcore/internal/tensor"
)

type waveNetLayerConfig struct {
	InputSize     int    `json:"input_size"`
	ConditionSize int    `json:"condition_size"`
	Channels      int    `json:"channels"`
	HeadSize      int    `json:"head_size"`
	KernelSize    int    `json:"kernel_size"`
	Dilations     []int  `json:"dilations"`
	Activation    string `json:"activation"`
	Gated         bool   `json:"gated"`
	HeadBias      bool   `json:"head_bias"`
}

type waveNetConfig struct {
	Layers    []waveNetLayerConfig `json:"layers"`
	Head      json.RawMessage      `json:"head"`
	HeadScale float64              `json:"head_scale"`
}

// waveNetLayer is one dilated residual layer. Its input history doubles as
// the output of the layer before it.
type waveNetLayer struct {
	input    *dsp.History
	conv     *dsp.Conv1D
	mixin    *dsp.Conv1x1
	oneByOne *dsp.Conv1x1
	act      dsp.Activation
	gated    bool
	z        []float32
}

// layerArray is a stack of layers sharing channel count, with a head
// rechannel feeding the next array's head accumulator.
type layerArray struct {
	rechannel     *dsp.Conv1x1
	layers        []*waveNetLayer
	headRechannel *dsp.Conv1x1
	channels      int
	headSize      int
}

// WaveNet is the conditioned dilated-convolution model used by most
// published captures.
type WaveNet struct {
	dsp.Base
	arrays    []*layerArray
	heads     []tensor.Mat // heads[i] accumulates array i; heads[len] is the output
	outs      []tensor.Mat
	headScale float32
	sigmoid   dsp.Activation
	rf        int
}

func buildWaveNet(f *namfile.File, rate float64) (dsp.DSP, error) {
	var cfg waveNetConfig
	if err := f.DecodeConfig(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Layers) == 0 {
		return nil, invalidConfig("layers must not be empty")
	}
	if len(cfg.Head) > 0 && string(cfg.Head) != "null" {
		return nil, invalidConfig("post-stack head is not supported")
	}
	if err := validateWaveNet(cfg.Layers); err != nil {
		return nil, err
	}
	sigmoid, err := dsp.GetActivation("Sigmoid")
	if err != nil {
		return nil, err
	}

	w := &WaveNet{Base: dsp.NewBase(rate), sigmoid: sigmoid, rf: 1}
	r := dsp.NewWeightReader(f.Weights)
	for _, lc := range cfg.Layers {
		a, err := newLayerArray(lc, r)
		if err != nil {
			return nil, err
		}
		w.arrays = append(w.arrays, a)
		for _, l := range a.layers {
			w.rf += l.conv.Lookback()
		}
	}
	headScale, err := r.Next()
	if err != nil {
		return nil, err
	}
	w.headScale = headScale
	if err := r.Done(); err != nil {
		return nil, err
	}

	w.heads = make([]tensor.Mat, len(w.arrays)+1)
	w.outs = make([]tensor.Mat, len(w.arrays))
	w.heads[0] = tensor.NewMat(w.MaxBlockSize(), w.arrays[0].channels)
	for i, a := range w.arrays {
		w.heads[i+1] = tensor.NewMat(w.MaxBlockSize(), a.headSize)
		w.outs[i] = tensor.NewMat(w.MaxBlockSize(), a.channels)
	}
	w.SetPrewarmSamples(w.rf)
	return w, nil
}

func validateWaveNet(layers []waveNetLayerConfig) error {
	for i, lc := range layers {
		if lc.Channels <= 0 || lc.HeadSize <= 0 || lc.KernelSize <= 0 || lc.InputSize <= 0 {
			return invalidConfig("layers[%d]: sizes must be positive", i)
		}
		if len(lc.Dilations) == 0 {
			return invalidConfig("layers[%d]: dilations must not be empty", i)
		}
		for j, d := range lc.Dilations {
			if d <= 0 {
				return invalidConfig("layers[%d].dilations[%d] must be positive, got %d", i, j, d)
			}
		}
		if lc.ConditionSize != 1 {
			return invalidConfig("layers[%d]: condition_size must be 1, got %d", i, lc.ConditionSize)
		}
		if i == 0 {
			if lc.InputSize != 1 {
				return invalidConfig("layers[0]: input_size must be 1, got %d", lc.InputSize)
			}
			continue
		}
		prev := layers[i-1]
		if lc.InputSize != prev.Channels {
			return invalidConfig("layers[%d]: input_size %d does not match previous channels %d", i, lc.InputSize, prev.Channels)
		}
		if lc.Channels != prev.HeadSize {
			return invalidConfig("layers[%d]: channels %d does not match previous head_size %d", i, lc.Channels, prev.HeadSize)
		}
	}
	if last := layers[len(layers)-1]; last.HeadSize != 1 {
		return invalidConfig("last head_size must be 1, got %d", last.HeadSize)
	}
	return nil
}

func newLayerArray(lc waveNetLayerConfig, r *dsp.WeightReader) (*layerArray, error) {
	act, err := dsp.GetActivation(lc.Activation)
	if err != nil {
		return nil, invalidConfig("%v", err)
	}
	a := &layerArray{
		rechannel:     dsp.NewConv1x1(lc.InputSize, lc.Channels, false),
		headRechannel: dsp.NewConv1x1(lc.Channels, lc.HeadSize, lc.HeadBias),
		channels:      lc.Channels,
		headSize:      lc.HeadSize,
	}
	if err := a.rechannel.SetWeights(r); err != nil {
		return nil, err
	}
	mid := lc.Channels
	if lc.Gated {
		mid = 2 * lc.Channels
	}
	for _, d := range lc.Dilations {
		l := &waveNetLayer{
			conv:     dsp.NewConv1D(lc.Channels, mid, lc.KernelSize, d, true),
			mixin:    dsp.NewConv1x1(lc.ConditionSize, mid, false),
			oneByOne: dsp.NewConv1x1(lc.Channels, lc.Channels, true),
			act:      act,
			gated:    lc.Gated,
			z:        make([]float32, mid),
		}
		l.input = dsp.NewHistory(lc.Channels, l.conv.Lookback())
		if err := l.conv.SetWeights(r); err != nil {
			return nil, err
		}
		if err := l.mixin.SetWeights(r); err != nil {
			return nil, err
		}
		if err := l.oneByOne.SetWeights(r); err != nil {
			return nil, err
		}
		a.layers = append(a.layers, l)
	}
	if err := a.headRechannel.SetWeights(r); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *layerArray) process(in, cond, headIn, out, headOut *tensor.Mat, n int, sigmoid dsp.Activation) {
	for _, l := range a.layers {
		l.input.Advance(n)
	}
	first := a.layers[0].input
	for t := 0; t < n; t++ {
		a.rechannel.Apply(first.Row(t), in.Row(t))
	}

	ch := a.channels
	for i, l := range a.layers {
		last := i == len(a.layers)-1
		for t := 0; t < n; t++ {
			z := l.z
			l.conv.ProcessFrame(z, l.input, t)
			l.mixin.ApplyAdd(z, cond.Row(t))
			top := z[:ch]
			l.act.Apply(top)
			if l.gated {
				gate := z[ch : 2*ch]
				sigmoid.Apply(gate)
				tensor.Mul(top, gate)
			}
			tensor.Add(headIn.Row(t), top)

			var dst []float32
			if last {
				dst = out.Row(t)
			} else {
				dst = a.layers[i+1].input.Row(t)
			}
			l.oneByOne.Apply(dst, top)
			tensor.Add(dst, l.input.Row(t))
		}
	}

	for t := 0; t < n; t++ {
		a.headRechannel.Apply(headOut.Row(t), headIn.Row(t))
	}
}

func (w *WaveNet) Process(input, output []float32) {
	n := len(input)
	if n == 0 {
		return
	}
	w.grow(n)
	cond := tensor.NewMatFromData(n, 1, input)
	clear(w.heads[0].Rows(0, n))

	for i, a := range w.arrays {
		in := &cond
		if i > 0 {
			in = &w.outs[i-1]
		}
		a.process(in, &cond, &w.heads[i], &w.outs[i], &w.heads[i+1], n, w.sigmoid)
	}

	final := &w.heads[len(w.arrays)]
	for t := 0; t < n; t++ {
		output[t] = w.headScale * final.Row(t)[0]
	}
}

func (w *WaveNet) grow(n int) {
	for i := range w.heads {
		w.heads[i].Grow(n)
	}
	for i := range w.outs {
		w.outs[i].Grow(n)
	}
}

func (w *WaveNet) Reset(sampleRate float64, maxBlockSize int) {
	w.ResetBase(sampleRate, maxBlockSize)
	for _, a := range w.arrays {
		for _, l := range a.layers {
			l.input.Reset()
		}
	}
	w.grow(w.MaxBlockSize())
}

func (w *WaveNet) Prewarm() { dsp.RunPrewarm(w, w.MaxBlockSize()) }

func (w *WaveNet) ReceptiveField() int { return w.rf }
