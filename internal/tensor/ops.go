package tensor

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	vek32.Add_Inplace(dst, src[:len(dst)])
}

// Mul multiplies dst by src element-wise.
func Mul(dst, src []float32) {
	vek32.Mul_Inplace(dst, src[:len(dst)])
}

// Scale multiplies every element of dst by s.
func Scale(dst []float32, s float32) {
	vek32.MulNumber_Inplace(dst, s)
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b[:len(a)])
}

// MatVec computes dst = w * x.
func MatVec(dst []float32, w *Mat, x []float32) {
	if len(dst) < w.R || len(x) < w.C {
		panic("matvec shape mismatch")
	}
	x = x[:w.C]
	for r := 0; r < w.R; r++ {
		dst[r] = Dot(w.Data[r*w.Stride:r*w.Stride+w.C], x)
	}
}

// MatVecAdd computes dst += w * x.
func MatVecAdd(dst []float32, w *Mat, x []float32) {
	if len(dst) < w.R || len(x) < w.C {
		panic("matvec shape mismatch")
	}
	x = x[:w.C]
	for r := 0; r < w.R; r++ {
		dst[r] += Dot(w.Data[r*w.Stride:r*w.Stride+w.C], x)
	}
}

// Sigmoid computes the logistic sigmoid activation.
func Sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

// Tanh computes the hyperbolic tangent.
func Tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// Silu computes the Sigmoid Linear Unit (SiLU) activation.
func Silu(x float32) float32 {
	return x * Sigmoid(x)
}
