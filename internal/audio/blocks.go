package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Processor is anything that turns a block of input frames into the same
// number of output frames, such as a loaded model handle.
type Processor interface {
	Process(input, output []float32)
}

// ProcessBlocks runs in through p in blocks of at most block frames and
// returns the concatenated output.
func ProcessBlocks(p Processor, in []float32, block int) []float32 {
	if block <= 0 {
		block = len(in)
	}
	out := make([]float32, len(in))
	for pos := 0; pos < len(in); pos += block {
		end := min(pos+block, len(in))
		p.Process(in[pos:end], out[pos:end])
	}
	return out
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float32 {
	var p float32
	for _, s := range samples {
		p = max(p, float32(math.Abs(float64(s))))
	}
	return p
}

// DecodeFloat32LE interprets b as little-endian IEEE-754 float32 samples.
func DecodeFloat32LE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("audio: %d bytes is not a whole number of float32 samples", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// EncodeFloat32LE appends samples to dst as little-endian float32.
func EncodeFloat32LE(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}
