package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/domsync/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Scheduler.FrameRate != DefaultFrameRate {
		t.Errorf("Scheduler.FrameRate = %d, want %d", cfg.Scheduler.FrameRate, DefaultFrameRate)
	}
	if cfg.Scheduler.SlowCycle != DefaultSlowCycle {
		t.Errorf("Scheduler.SlowCycle = %q, want %q", cfg.Scheduler.SlowCycle, DefaultSlowCycle)
	}
	if cfg.Serve.Port != DefaultPort {
		t.Errorf("Serve.Port = %d, want %d", cfg.Serve.Port, DefaultPort)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Error("Expected error for missing config")
	}
	if !errors.IsCode(err, "E020") {
		t.Errorf("err = %v, want E020", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "scheduler": {
    "frameRate": 30,
    "sync": true
  },
  "log": {
    "level": "debug",
    "format": "json"
  },
  "serve": {
    "port": 9090
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Scheduler.FrameRate != 30 {
		t.Errorf("Scheduler.FrameRate = %d, want 30", cfg.Scheduler.FrameRate)
	}
	if !cfg.Scheduler.Sync {
		t.Error("Scheduler.Sync should be true")
	}
	if cfg.Scheduler.SlowCycle != DefaultSlowCycle {
		t.Errorf("Scheduler.SlowCycle = %q, want default", cfg.Scheduler.SlowCycle)
	}
	if cfg.Serve.Port != 9090 {
		t.Errorf("Serve.Port = %d, want 9090", cfg.Serve.Port)
	}
	if cfg.Serve.WSPath != "/ws" {
		t.Errorf("Serve.WSPath = %q, want /ws", cfg.Serve.WSPath)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if !errors.IsCode(err, "E020") {
		t.Errorf("err = %v, want E020", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Scheduler.FrameRate != DefaultFrameRate {
		t.Errorf("FrameRate = %d, want default", cfg.Scheduler.FrameRate)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"frame rate zero", func(c *Config) { c.Scheduler.FrameRate = 0 }},
		{"frame rate too high", func(c *Config) { c.Scheduler.FrameRate = 1000 }},
		{"bad slow cycle", func(c *Config) { c.Scheduler.SlowCycle = "soon" }},
		{"negative slow cycle", func(c *Config) { c.Scheduler.SlowCycle = "-1ms" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad port", func(c *Config) { c.Serve.Port = 70000 }},
		{"relative ws path", func(c *Config) { c.Serve.WSPath = "ws" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.IsCode(err, "E021") {
				t.Errorf("Validate() = %v, want E021", err)
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	data := []byte(`{"scheduler": {"frameRate": 500}}`)
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpDir); !errors.IsCode(err, "E021") {
		t.Errorf("Load() err = %v, want E021", err)
	}
}

func TestDurations(t *testing.T) {
	cfg := New()
	cfg.Scheduler.FrameRate = 50
	if got := cfg.FrameInterval(); got != 20*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 20ms", got)
	}

	cfg.Scheduler.SlowCycle = "40ms"
	if got := cfg.SlowCycleThreshold(); got != 40*time.Millisecond {
		t.Errorf("SlowCycleThreshold() = %v, want 40ms", got)
	}
	cfg.Scheduler.SlowCycle = "garbage"
	if got := cfg.SlowCycleThreshold(); got != 16*time.Millisecond {
		t.Errorf("SlowCycleThreshold() fallback = %v, want 16ms", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "cycle", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"cycle":3`) {
		t.Errorf("unexpected JSON log output: %s", out)
	}
}

func TestServeAddress(t *testing.T) {
	cfg := New()
	cfg.Serve.Host = "0.0.0.0"
	cfg.Serve.Port = 9000
	if got := cfg.ServeAddress(); got != "0.0.0.0:9000" {
		t.Errorf("ServeAddress() = %q, want 0.0.0.0:9000", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Scheduler.FrameRate = 24
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Scheduler.FrameRate != 24 {
		t.Errorf("FrameRate = %d, want 24", loaded.Scheduler.FrameRate)
	}

	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	want, _ := filepath.Abs(tmpDir)
	if root != want {
		t.Errorf("FindProjectRoot = %q, want %q", root, want)
	}
}
