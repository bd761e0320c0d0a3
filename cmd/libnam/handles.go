package main

import (
	"log/slog"
	"os"
	"runtime/cgo"

	"github.com/samcharles93/namcore/internal/logger"
	"github.com/samcharles93/namcore/pkg/nam"
)

// envLogLevel sets the level of the diagnostics written to stderr.
const envLogLevel = "NAM_LOG_LEVEL"

func init() {
	level, err := logger.ParseLevel(os.Getenv(envLogLevel))
	if err != nil {
		level = slog.LevelWarn
	}
	nam.SetLogger(logger.Text(os.Stderr, level).Slog())
}

// create loads the model at path and returns a handle for it, or 0 when the
// model cannot be loaded. The reason is logged to stderr.
func create(path string) uintptr {
	h, err := nam.Load(path)
	if err != nil {
		return 0
	}
	return uintptr(cgo.NewHandle(h))
}

func lookup(id uintptr) *nam.Handle {
	if id == 0 {
		return nil
	}
	h, _ := cgo.Handle(id).Value().(*nam.Handle)
	return h
}

// sampleRate is 0 for the null handle.
func sampleRate(id uintptr) float64 {
	return lookup(id).ExpectedSampleRate()
}

func process(id uintptr, input, output []float32) {
	lookup(id).Process(input, output)
}

func destroy(id uintptr) {
	if id == 0 {
		return
	}
	ch := cgo.Handle(id)
	if h, ok := ch.Value().(*nam.Handle); ok {
		h.Release()
	}
	ch.Delete()
}

func enableFastTanh() {
	nam.EnableFastTanh()
}
