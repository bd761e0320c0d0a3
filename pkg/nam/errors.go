package nam

import (
	"errors"
	"fmt"
)

// Load failure kinds. A *LoadError matches exactly one of them with errors.Is.
var (
	ErrNullInput           = errors.New("nam: no model path given")
	ErrFileNotFound        = errors.New("nam: model file not found")
	ErrParseOrConstruction = errors.New("nam: model could not be parsed or constructed")
)

// LoadError describes why Load returned no handle.
type LoadError struct {
	Kind error
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %q", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %q: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
