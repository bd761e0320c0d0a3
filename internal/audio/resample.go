package audio

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resamplePad is the silence placed before and after the signal: the lead
// keeps the start of the signal clear of the converter's warm-up and the
// tail flushes its filter.
const resamplePad = 4096

type ratePair struct{ from, to int }

// resampleDelay caches the measured converter delay per rate pair, in output
// samples.
var resampleDelay sync.Map

// Resample converts mono samples from one rate to another. The result has
// round(len(samples) * to / from) samples and is aligned in time with the
// input: input sample k lands at output position k * to / from.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rates %d -> %d", from, to)
	}
	if from == to || len(samples) == 0 {
		return append([]float32(nil), samples...), nil
	}

	delay, err := converterDelay(from, to)
	if err != nil {
		return nil, err
	}

	in := make([]float64, resamplePad+len(samples)+resamplePad)
	for i, s := range samples {
		in[resamplePad+i] = float64(s)
	}
	out, err := convert(in, from, to)
	if err != nil {
		return nil, err
	}

	want := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	first := int(math.Round(float64(resamplePad)*float64(to)/float64(from))) + delay
	res := make([]float32, want)
	for i := range res {
		if j := first + i; j >= 0 && j < len(out) {
			res[i] = float32(out[j])
		}
	}
	return res, nil
}

func convert(in []float64, from, to int) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	out, err := r.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d: %w", from, to, err)
	}
	return out, nil
}

// converterDelay runs an impulse through the converter and returns how far
// the output peak sits from where the impulse belongs. Negative values mean
// the converter output is early.
func converterDelay(from, to int) (int, error) {
	key := ratePair{from, to}
	if d, ok := resampleDelay.Load(key); ok {
		return d.(int), nil
	}

	const at = resamplePad
	impulse := make([]float64, 3*resamplePad)
	impulse[at] = 1
	out, err := convert(impulse, from, to)
	if err != nil {
		return 0, err
	}
	peak, best := -1, 0.0
	for i, v := range out {
		if a := math.Abs(v); a > best {
			peak, best = i, a
		}
	}
	if peak < 0 {
		return 0, fmt.Errorf("audio: resampler %d -> %d produced no output", from, to)
	}
	d := peak - int(math.Round(float64(at)*float64(to)/float64(from)))
	resampleDelay.Store(key, d)
	return d, nil
}

// ResampleClip returns c converted to rate. The input is returned unchanged
// when it is already at rate.
func ResampleClip(c *Clip, rate int) (*Clip, error) {
	if c.SampleRate == rate {
		return c, nil
	}
	samples, err := Resample(c.Samples, c.SampleRate, rate)
	if err != nil {
		return nil, err
	}
	return &Clip{SampleRate: rate, Samples: samples, Channels: 1, BitDepth: c.BitDepth}, nil
}
