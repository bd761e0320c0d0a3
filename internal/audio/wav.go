// Package audio reads and writes the mono clips the CLI renders, converts
// sample rates and drives a processor over fixed-size blocks.
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var (
	ErrInvalidWAV     = errors.New("audio: not a valid WAV file")
	ErrUnsupportedWAV = errors.New("audio: unsupported WAV encoding")
)

// Clip is mono audio at a fixed rate.
type Clip struct {
	SampleRate int
	Samples    []float32
	// Channels is the channel count of the source before downmixing.
	Channels int
	// BitDepth is the source bit depth, 0 for generated clips.
	BitDepth int
}

func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// ReadWAV decodes an integer PCM WAV stream and averages its channels to mono.
func ReadWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	channels := max(int(dec.NumChans), 1)
	depth := int(dec.BitDepth)
	scale, offset, err := pcmScale(depth)
	if err != nil {
		return nil, err
	}
	frames := len(buf.Data) / channels
	clip := &Clip{
		SampleRate: int(dec.SampleRate),
		Samples:    make([]float32, frames),
		Channels:   channels,
		BitDepth:   depth,
	}
	inv := 1 / float64(channels)
	for i := range frames {
		var sum float64
		for _, v := range buf.Data[i*channels : (i+1)*channels] {
			sum += (float64(v) - offset) / scale
		}
		clip.Samples[i] = float32(sum * inv)
	}
	return clip, nil
}

// pcmScale returns the full-scale value and zero offset of a PCM bit depth.
// 8-bit WAV samples are unsigned.
func pcmScale(depth int) (scale, offset float64, err error) {
	switch depth {
	case 8:
		return 128, 128, nil
	case 16, 24, 32:
		return math.Exp2(float64(depth - 1)), 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedWAV, depth)
	}
}

// WriteWAV encodes c as a mono integer PCM WAV of the given bit depth.
// Samples outside [-1, 1] are clipped.
func WriteWAV(w io.WriteSeeker, c *Clip, bitDepth int) error {
	if c == nil || c.SampleRate <= 0 {
		return fmt.Errorf("audio: clip has no sample rate")
	}
	if bitDepth == 8 {
		return fmt.Errorf("%w: 8-bit output", ErrUnsupportedWAV)
	}
	scale, _, err := pcmScale(bitDepth)
	if err != nil {
		return err
	}
	peak := scale - 1

	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		v := math.Round(float64(s) * scale)
		data[i] = int(math.Max(-scale, math.Min(peak, v)))
	}

	enc := wav.NewEncoder(w, c.SampleRate, bitDepth, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
