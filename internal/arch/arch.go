// Package arch builds runnable models from decoded .nam files.
package arch

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samcharles93/namcore/internal/dsp"
	"github.com/samcharles93/namcore/internal/namfile"
)

var (
	ErrUnknownArchitecture = errors.New("unknown architecture")
	ErrInvalidConfig       = errors.New("invalid architecture config")
)

type builder func(f *namfile.File, expectedSampleRate float64) (dsp.DSP, error)

var builders = map[string]builder{
	"Linear":  buildLinear,
	"ConvNet": buildConvNet,
	"LSTM":    buildLSTM,
	"WaveNet": buildWaveNet,
}

// Architectures lists the architecture names Build understands.
func Architectures() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build constructs the model described by f. Every weight in f must be
// consumed by the architecture.
func Build(f *namfile.File) (dsp.DSP, error) {
	if f == nil {
		return nil, fmt.Errorf("arch: nil model file")
	}
	b, ok := lookup(f.Architecture)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchitecture, f.Architecture)
	}
	rate := dsp.UnknownSampleRate
	if f.HasSampleRate() {
		rate = f.SampleRate
	}
	m, err := b(f, rate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Architecture, err)
	}
	return m, nil
}

func lookup(name string) (builder, bool) {
	if b, ok := builders[name]; ok {
		return b, true
	}
	for k, b := range builders {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return b, true
		}
	}
	return nil, false
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
