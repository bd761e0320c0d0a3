package arch

import (
	"github.com/samcharles93/namcore/internal/dsp"
	"github.com/samcharles93/namcore/internal/namfile"
	"github.com/samcharles93/namcore/internal/tensor"
)

const convNetKernelSize = 2

type convNetConfig struct {
	Channels   int    `json:"channels"`
	Dilations  []int  `json:"dilations"`
	BatchNorm  bool   `json:"batchnorm"`
	Activation string `json:"activation"`
}

type convBlock struct {
	input *dsp.History
	conv  *dsp.Conv1D
	bn    *dsp.BatchNorm
	act   dsp.Activation
}

// ConvNet stacks dilated kernel-2 convolutions and ends in a linear head.
type ConvNet struct {
	dsp.Base
	blocks     []*convBlock
	last       tensor.Mat
	headWeight []float32
	headBias   float32
	rf         int
}

func buildConvNet(f *namfile.File, rate float64) (dsp.DSP, error) {
	var cfg convNetConfig
	if err := f.DecodeConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Channels <= 0 {
		return nil, invalidConfig("channels must be positive, got %d", cfg.Channels)
	}
	if len(cfg.Dilations) == 0 {
		return nil, invalidConfig("dilations must not be empty")
	}
	act, err := dsp.GetActivation(cfg.Activation)
	if err != nil {
		return nil, invalidConfig("%v", err)
	}

	r := dsp.NewWeightReader(f.Weights)
	c := &ConvNet{Base: dsp.NewBase(rate), rf: 1}
	for i, d := range cfg.Dilations {
		if d <= 0 {
			return nil, invalidConfig("dilations[%d] must be positive, got %d", i, d)
		}
		in := cfg.Channels
		if i == 0 {
			in = 1
		}
		b := &convBlock{
			conv: dsp.NewConv1D(in, cfg.Channels, convNetKernelSize, d, !cfg.BatchNorm),
			act:  act,
		}
		b.input = dsp.NewHistory(in, b.conv.Lookback())
		if err := b.conv.SetWeights(r); err != nil {
			return nil, err
		}
		if cfg.BatchNorm {
			b.bn = dsp.NewBatchNorm(cfg.Channels)
			if err := b.bn.SetWeights(r); err != nil {
				return nil, err
			}
		}
		c.blocks = append(c.blocks, b)
		c.rf += b.conv.Lookback()
	}

	hw, err := r.Take(cfg.Channels)
	if err != nil {
		return nil, err
	}
	c.headWeight = append([]float32(nil), hw...)
	if c.headBias, err = r.Next(); err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}

	c.last = tensor.NewMat(c.MaxBlockSize(), cfg.Channels)
	c.SetPrewarmSamples(c.rf)
	return c, nil
}

func (c *ConvNet) Process(input, output []float32) {
	n := len(input)
	c.last.Grow(n)

	first := c.blocks[0].input
	first.Advance(n)
	copy(first.Span(0, n), input)

	for i, b := range c.blocks {
		var next *dsp.History
		if i+1 < len(c.blocks) {
			next = c.blocks[i+1].input
			next.Advance(n)
		}
		for t := 0; t < n; t++ {
			var dst []float32
			if next != nil {
				dst = next.Row(t)
			} else {
				dst = c.last.Row(t)
			}
			b.conv.ProcessFrame(dst, b.input, t)
			if b.bn != nil {
				b.bn.Apply(dst)
			}
			b.act.Apply(dst)
		}
	}

	for t := 0; t < n; t++ {
		output[t] = c.headBias + tensor.Dot(c.headWeight, c.last.Row(t))
	}
}

func (c *ConvNet) Reset(sampleRate float64, maxBlockSize int) {
	c.ResetBase(sampleRate, maxBlockSize)
	for _, b := range c.blocks {
		b.input.Reset()
	}
	c.last.Grow(c.MaxBlockSize())
}

func (c *ConvNet) Prewarm() { dsp.RunPrewarm(c, c.MaxBlockSize()) }

func (c *ConvNet) ReceptiveField() int { return c.rf }
