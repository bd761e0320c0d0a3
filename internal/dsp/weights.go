package dsp

import (
	"errors"
	"fmt"
)

// ErrWeightCount reports a weight vector that does not match the architecture.
var ErrWeightCount = errors.New("weight count mismatch")

// WeightReader consumes a flat weight vector in model-file order.
type WeightReader struct {
	data []float32
	pos  int
}

func NewWeightReader(data []float32) *WeightReader {
	return &WeightReader{data: data}
}

// Take returns the next n weights.
func (r *WeightReader) Take(n int) ([]float32, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d more, have %d", ErrWeightCount, n, len(r.data)-r.pos)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Next returns a single weight.
func (r *WeightReader) Next() (float32, error) {
	w, err := r.Take(1)
	if err != nil {
		return 0, err
	}
	return w[0], nil
}

// Remaining is the number of unread weights.
func (r *WeightReader) Remaining() int { return len(r.data) - r.pos }

// Done fails unless every weight has been consumed.
func (r *WeightReader) Done() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d unused", ErrWeightCount, n)
	}
	return nil
}
