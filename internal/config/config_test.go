package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
models_dir: /srv/models
block_size: 256
fast_tanh: true
log_level: debug
server_address: 0.0.0.0:9000
plugin_model: /srv/models/plexi.nam
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.ModelsDir != "/srv/models" {
		t.Fatalf("ModelsDir = %q, want /srv/models", cfg.ModelsDir)
	}
	if cfg.BlockSize == nil || *cfg.BlockSize != 256 {
		t.Fatalf("BlockSize = %v, want 256", cfg.BlockSize)
	}
	if cfg.FastTanh == nil || !*cfg.FastTanh {
		t.Fatalf("FastTanh = %v, want true", cfg.FastTanh)
	}
	if cfg.LogFormat != "" {
		t.Fatalf("LogFormat = %q, want empty", cfg.LogFormat)
	}
	if cfg.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("ServerAddress = %q", cfg.ServerAddress)
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.ModelsDir != "" || cfg.BlockSize != nil {
		t.Fatalf("LoadFile() = %+v, want zero config", cfg)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"models_dir: [", "block_size: 0"} {
		if _, err := LoadFile(writeConfig(t, content)); err == nil {
			t.Fatalf("LoadFile(%q) error = nil, want error", content)
		}
	}
}

func TestLoadUsesEnvPath(t *testing.T) {
	path := writeConfig(t, "models_dir: /env/models\n")
	t.Setenv(EnvPath, path)

	if got := Path(); got != path {
		t.Fatalf("Path() = %q, want %q", got, path)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ModelsDir != "/env/models" {
		t.Fatalf("ModelsDir = %q, want /env/models", cfg.ModelsDir)
	}
}

func TestPluginModelPath(t *testing.T) {
	cfg := Config{PluginModel: "/cfg/amp.nam"}

	t.Setenv(EnvPluginModel, "")
	if got := cfg.PluginModelPath(); got != "/cfg/amp.nam" {
		t.Fatalf("PluginModelPath() = %q, want /cfg/amp.nam", got)
	}
	t.Setenv(EnvPluginModel, "/env/amp.nam")
	if got := cfg.PluginModelPath(); got != "/env/amp.nam" {
		t.Fatalf("PluginModelPath() = %q, want /env/amp.nam", got)
	}
}
