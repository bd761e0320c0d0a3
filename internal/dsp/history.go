package dsp

import "github.com/samcharles93/namcore/internal/tensor"

// historySafetyFactor sizes the buffer so rewinds happen rarely.
const historySafetyFactor = 32

// History holds the input of a layer together with the frames that came
// before the current block, so dilated convolutions can look back in time.
// Frame t of the current block is Row(t); negative t reaches into the past
// down to -Lookback().
type History struct {
	buf      tensor.Mat
	lookback int
	start    int
	frames   int
}

func NewHistory(channels, lookback int) *History {
	h := &History{lookback: lookback}
	h.buf = tensor.NewMat(max(historySafetyFactor*lookback, lookback+1), channels)
	h.start = lookback
	return h
}

// Advance moves past the previous block and makes room for frames new ones.
func (h *History) Advance(frames int) {
	h.start += h.frames
	h.frames = frames
	need := h.lookback + frames
	if h.buf.R < need {
		grown := tensor.NewMat(max(need, historySafetyFactor*h.lookback), h.buf.C)
		copy(grown.Rows(0, h.lookback), h.buf.Rows(h.start-h.lookback, h.start))
		h.buf = grown
		h.start = h.lookback
		return
	}
	if h.start+frames > h.buf.R {
		copy(h.buf.Rows(0, h.lookback), h.buf.Rows(h.start-h.lookback, h.start))
		h.start = h.lookback
	}
}

// Row returns frame t relative to the start of the current block.
func (h *History) Row(t int) []float32 {
	return h.buf.Row(h.start + t)
}

// Span returns the contiguous data for frames [t0, t1) of the current block.
func (h *History) Span(t0, t1 int) []float32 {
	return h.buf.Rows(h.start+t0, h.start+t1)
}

// Reset clears all history.
func (h *History) Reset() {
	h.buf.Zero()
	h.start = h.lookback
	h.frames = 0
}

func (h *History) Channels() int { return h.buf.C }
func (h *History) Lookback() int { return h.lookback }
