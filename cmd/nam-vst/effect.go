package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/samcharles93/namcore/internal/config"
	"github.com/samcharles93/namcore/internal/logger"
	"github.com/samcharles93/namcore/pkg/nam"
)

// effect is the host-independent part of the plugin.
type effect struct {
	modeler *nam.Modeler
	log     logger.Logger
}

func newEffect(cfg config.Config, log logger.Logger) *effect {
	opts := []nam.ModelerOption{}
	if cfg.BlockSize != nil {
		opts = append(opts, nam.WithMaximumBufferSize(int(*cfg.BlockSize)))
	}
	e := &effect{modeler: nam.NewModeler(opts...), log: log}
	if path := cfg.PluginModelPath(); path != "" {
		e.load(path)
	}
	return e
}

// load swaps in the model at path. A failed load keeps the current model.
func (e *effect) load(path string) bool {
	if err := e.modeler.SetModel(path); err != nil {
		e.log.Error("model load failed", "path", path, "error", err)
		return false
	}
	e.log.Info("model loaded", "path", path, "sample_rate", e.modeler.ExpectedSampleRate())
	return true
}

// process writes the model output for in to out. Without a model the input
// passes through.
func (e *effect) process(in, out []float32) {
	n := min(len(in), len(out))
	copy(out[:n], in[:n])
	e.modeler.ProcessBuffer(out[:n])
}

// chunk is the session state saved by the host.
func (e *effect) chunk() []byte {
	return []byte(e.modeler.ModelPath())
}

func (e *effect) restore(data []byte) {
	path := strings.TrimSpace(string(data))
	if path == "" || path == e.modeler.ModelPath() {
		return
	}
	e.load(path)
}

func (e *effect) close() {
	_ = e.modeler.Close()
}

// pluginLogger writes to stderr, which most hosts keep in their log.
func pluginLogger(cfg config.Config) logger.Logger {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	log, err := logger.ForFormat(cfg.LogFormat, os.Stderr, level)
	if err != nil {
		return logger.Text(os.Stderr, level)
	}
	return log
}
