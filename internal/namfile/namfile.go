// Package namfile reads Neural Amp Modeler model files (.nam).
//
// A .nam file is a JSON document with the architecture name, an architecture
// specific config object, a flat weight vector and optional metadata:
//
//	{
//	  "version": "0.5.4",
//	  "architecture": "WaveNet",
//	  "config": {...},
//	  "weights": [...],
//	  "sample_rate": 48000,
//	  "metadata": {"loudness": -18.3, ...}
//	}
package namfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const Ext = ".nam"

var (
	ErrNotFound           = errors.New("namfile: file not found")
	ErrMalformed          = errors.New("namfile: malformed model file")
	ErrUnsupportedVersion = errors.New("namfile: unsupported model version")
)

// File is a decoded model file. Config stays raw because its shape depends on
// Architecture.
type File struct {
	Version      Version
	Architecture string
	Config       json.RawMessage
	Weights      []float32
	// SampleRate is the training rate, zero when the file does not declare it.
	SampleRate float64
	Metadata   Metadata
}

// HasSampleRate reports whether the file declared a sample rate.
func (f *File) HasSampleRate() bool { return f.SampleRate > 0 }

type Metadata struct {
	Name      string `json:"name,omitempty"`
	ModeledBy string `json:"modeled_by,omitempty"`
	GearType  string `json:"gear_type,omitempty"`
	GearMake  string `json:"gear_make,omitempty"`
	GearModel string `json:"gear_model,omitempty"`
	ToneType  string `json:"tone_type,omitempty"`
	Date      *Date  `json:"date,omitempty"`

	Loudness       *float64 `json:"loudness,omitempty"`
	Gain           *float64 `json:"gain,omitempty"`
	InputLevelDBu  *float64 `json:"input_level_dbu,omitempty"`
	OutputLevelDBu *float64 `json:"output_level_dbu,omitempty"`
}

type Date struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

type rawFile struct {
	Version      string          `json:"version"`
	Architecture string          `json:"architecture"`
	Config       json.RawMessage `json:"config"`
	Weights      []float32       `json:"weights"`
	SampleRate   *float64        `json:"sample_rate"`
	Metadata     *Metadata       `json:"metadata"`
}

// Parse decodes and validates a model file held in memory.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(raw.Architecture) == "" {
		return nil, fmt.Errorf("%w: missing architecture", ErrMalformed)
	}
	if len(raw.Config) == 0 || string(raw.Config) == "null" {
		return nil, fmt.Errorf("%w: missing config", ErrMalformed)
	}
	v, err := ParseVersion(raw.Version)
	if err != nil {
		return nil, err
	}
	if err := VerifyVersion(v); err != nil {
		return nil, err
	}
	f := &File{
		Version:      v,
		Architecture: raw.Architecture,
		Config:       raw.Config,
		Weights:      raw.Weights,
	}
	if raw.SampleRate != nil {
		if *raw.SampleRate <= 0 {
			return nil, fmt.Errorf("%w: sample_rate %v", ErrMalformed, *raw.SampleRate)
		}
		f.SampleRate = *raw.SampleRate
	}
	if raw.Metadata != nil {
		f.Metadata = *raw.Metadata
	}
	return f, nil
}

// DecodeConfig unmarshals the architecture config into v.
func (f *File) DecodeConfig(v any) error {
	if err := json.Unmarshal(f.Config, v); err != nil {
		return fmt.Errorf("%w: %s config: %v", ErrMalformed, f.Architecture, err)
	}
	return nil
}

// Version is a model file version "major.minor.patch".
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: version %q", ErrMalformed, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: version %q", ErrMalformed, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// VerifyVersion accepts the 0.5.x file family.
func VerifyVersion(v Version) error {
	if v.Major != 0 || v.Minor != 5 {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	return nil
}
