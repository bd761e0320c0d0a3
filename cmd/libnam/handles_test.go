package main

import (
	"path/filepath"
	"testing"
)

func TestCreateFailures(t *testing.T) {
	t.Parallel()

	if got := create(""); got != 0 {
		t.Fatalf("create(\"\") = %d, want 0", got)
	}
	if got := create(filepath.Join(t.TempDir(), "missing.nam")); got != 0 {
		t.Fatalf("create(missing) = %d, want 0", got)
	}
}

func TestHandleLifecycle(t *testing.T) {
	t.Parallel()

	id := create(filepath.Join("testdata", "passthrough.nam"))
	if id == 0 {
		t.Fatal("create() = 0, want a handle")
	}
	if got := sampleRate(id); got != 44100 {
		t.Fatalf("sampleRate() = %v, want 44100", got)
	}

	in := []float32{0.25, -0.5, 1}
	out := make([]float32, len(in))
	process(id, in, out)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("process() = %v, want %v", out, in)
		}
	}
	destroy(id)
}

func TestNullHandle(t *testing.T) {
	t.Parallel()

	if got := sampleRate(0); got != 0 {
		t.Fatalf("sampleRate(0) = %v, want 0", got)
	}
	out := []float32{7}
	process(0, []float32{1}, out)
	if out[0] != 7 {
		t.Fatalf("process(0) wrote %v", out)
	}
	destroy(0)
}
