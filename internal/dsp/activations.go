package dsp

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/samcharles93/namcore/internal/tensor"
)

// Activation applies a pointwise non-linearity in place.
type Activation interface {
	Name() string
	Apply(x []float32)
}

type activationFunc struct {
	name string
	fn   func(float32) float32
}

func (a activationFunc) Name() string { return a.name }

func (a activationFunc) Apply(x []float32) {
	for i, v := range x {
		x[i] = a.fn(v)
	}
}

var (
	actTanh      = activationFunc{name: "Tanh", fn: tensor.Tanh}
	actFastTanh  = activationFunc{name: "Fasttanh", fn: FastTanh}
	actHardTanh  = activationFunc{name: "Hardtanh", fn: hardTanh}
	actReLU      = activationFunc{name: "ReLU", fn: relu}
	actLeakyReLU = activationFunc{name: "LeakyReLU", fn: leakyReLU}
	actSigmoid   = activationFunc{name: "Sigmoid", fn: tensor.Sigmoid}
	actSiLU      = activationFunc{name: "SiLU", fn: tensor.Silu}
	actHardswish = activationFunc{name: "Hardswish", fn: hardswish}
)

var activations = map[string]Activation{
	"tanh":      actTanh,
	"fasttanh":  actFastTanh,
	"hardtanh":  actHardTanh,
	"relu":      actReLU,
	"leakyrelu": actLeakyReLU,
	"sigmoid":   actSigmoid,
	"silu":      actSiLU,
	"hardswish": actHardswish,
}

var fastTanh atomic.Bool

// EnableFastTanh makes subsequent lookups of "Tanh" return the rational
// approximation. Models already built keep the activation they were built with.
func EnableFastTanh() { fastTanh.Store(true) }

// DisableFastTanh restores exact tanh for subsequent lookups.
func DisableFastTanh() { fastTanh.Store(false) }

// FastTanhEnabled reports whether "Tanh" currently resolves to Fasttanh.
func FastTanhEnabled() bool { return fastTanh.Load() }

// GetActivation resolves an activation by its model-file name.
func GetActivation(name string) (Activation, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "tanh" && fastTanh.Load() {
		return actFastTanh, nil
	}
	act, ok := activations[key]
	if !ok {
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
	return act, nil
}

// FastTanh is a rational approximation of tanh, accurate to about 1e-3.
func FastTanh(x float32) float32 {
	ax := float32(math.Abs(float64(x)))
	x2 := x * x
	num := x * (2.45550750702956 + 2.45550750702956*ax + (0.893229853513558+0.821226666969744*ax)*x2)
	den := 2.44506634652299 + (2.44506634652299+x2)*float32(math.Abs(float64(x+0.814642734961073*x*ax)))
	return num / den
}

func hardTanh(x float32) float32 {
	switch {
	case x < -1:
		return -1
	case x > 1:
		return 1
	default:
		return x
	}
}

func relu(x float32) float32 {
	if x < 0 {
		return 0
	}
	return x
}

func leakyReLU(x float32) float32 {
	if x < 0 {
		return 0.01 * x
	}
	return x
}

func hardswish(x float32) float32 {
	switch {
	case x <= -3:
		return 0
	case x >= 3:
		return x
	default:
		return x * (x + 3) / 6
	}
}
