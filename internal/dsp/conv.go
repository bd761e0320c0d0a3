package dsp

import (
	"fmt"
	"math"

	"github.com/samcharles93/namcore/internal/tensor"
)

// Conv1D is a dilated causal convolution. Tap k of the kernel multiplies the
// input dilation*(kernel-1-k) frames in the past, so the last tap sees the
// current frame.
type Conv1D struct {
	weight   []tensor.Mat
	bias     []float32
	dilation int
	in, out  int
}

func NewConv1D(in, out, kernel, dilation int, bias bool) *Conv1D {
	c := &Conv1D{
		weight:   make([]tensor.Mat, kernel),
		dilation: dilation,
		in:       in,
		out:      out,
	}
	for k := range c.weight {
		c.weight[k] = tensor.NewMat(out, in)
	}
	if bias {
		c.bias = make([]float32, out)
	}
	return c
}

// SetWeights reads out×in×kernel weights (kernel fastest) and then the bias.
func (c *Conv1D) SetWeights(r *WeightReader) error {
	w, err := r.Take(c.out * c.in * len(c.weight))
	if err != nil {
		return fmt.Errorf("conv1d: %w", err)
	}
	i := 0
	for o := 0; o < c.out; o++ {
		for j := 0; j < c.in; j++ {
			for k := range c.weight {
				c.weight[k].Row(o)[j] = w[i]
				i++
			}
		}
	}
	if c.bias != nil {
		b, err := r.Take(c.out)
		if err != nil {
			return fmt.Errorf("conv1d bias: %w", err)
		}
		copy(c.bias, b)
	}
	return nil
}

// Lookback is how many past frames the convolution reads.
func (c *Conv1D) Lookback() int { return c.dilation * (len(c.weight) - 1) }

func (c *Conv1D) KernelSize() int  { return len(c.weight) }
func (c *Conv1D) Dilation() int    { return c.dilation }
func (c *Conv1D) OutChannels() int { return c.out }

// ProcessFrame writes the output for frame t of src into dst.
func (c *Conv1D) ProcessFrame(dst []float32, src *History, t int) {
	if c.bias != nil {
		copy(dst[:c.out], c.bias)
	} else {
		clear(dst[:c.out])
	}
	last := len(c.weight) - 1
	for k := range c.weight {
		tensor.MatVecAdd(dst, &c.weight[k], src.Row(t-c.dilation*(last-k)))
	}
}

// Conv1x1 is a pointwise channel mixer.
type Conv1x1 struct {
	weight tensor.Mat
	bias   []float32
}

func NewConv1x1(in, out int, bias bool) *Conv1x1 {
	c := &Conv1x1{weight: tensor.NewMat(out, in)}
	if bias {
		c.bias = make([]float32, out)
	}
	return c
}

// SetWeights reads the out×in matrix row-major and then the bias.
func (c *Conv1x1) SetWeights(r *WeightReader) error {
	w, err := r.Take(c.weight.R * c.weight.C)
	if err != nil {
		return fmt.Errorf("conv1x1: %w", err)
	}
	copy(c.weight.Data, w)
	if c.bias != nil {
		b, err := r.Take(c.weight.R)
		if err != nil {
			return fmt.Errorf("conv1x1 bias: %w", err)
		}
		copy(c.bias, b)
	}
	return nil
}

func (c *Conv1x1) InChannels() int  { return c.weight.C }
func (c *Conv1x1) OutChannels() int { return c.weight.R }

// Apply computes dst = W·src (+ bias).
func (c *Conv1x1) Apply(dst, src []float32) {
	tensor.MatVec(dst, &c.weight, src)
	if c.bias != nil {
		tensor.Add(dst[:len(c.bias)], c.bias)
	}
}

// ApplyAdd computes dst += W·src (+ bias).
func (c *Conv1x1) ApplyAdd(dst, src []float32) {
	tensor.MatVecAdd(dst, &c.weight, src)
	if c.bias != nil {
		tensor.Add(dst[:len(c.bias)], c.bias)
	}
}

// BatchNorm is an inference-time batch normalization folded into a
// per-channel scale and offset.
type BatchNorm struct {
	scale []float32
	loc   []float32
}

func NewBatchNorm(dim int) *BatchNorm {
	return &BatchNorm{scale: make([]float32, dim), loc: make([]float32, dim)}
}

// SetWeights reads running_mean, running_var, weight, bias and eps.
func (b *BatchNorm) SetWeights(r *WeightReader) error {
	dim := len(b.scale)
	w, err := r.Take(4*dim + 1)
	if err != nil {
		return fmt.Errorf("batchnorm: %w", err)
	}
	mean := w[:dim]
	variance := w[dim : 2*dim]
	weight := w[2*dim : 3*dim]
	bias := w[3*dim : 4*dim]
	eps := w[4*dim]
	for i := 0; i < dim; i++ {
		b.scale[i] = weight[i] / float32(math.Sqrt(float64(eps+variance[i])))
		b.loc[i] = bias[i] - b.scale[i]*mean[i]
	}
	return nil
}

// Apply normalizes x in place.
func (b *BatchNorm) Apply(x []float32) {
	for i := range b.scale {
		x[i] = x[i]*b.scale[i] + b.loc[i]
	}
}
