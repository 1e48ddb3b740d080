package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wattwise.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tracker.TickInterval != "1s" {
		t.Errorf("tick_interval = %q, want 1s", cfg.Tracker.TickInterval)
	}
	if cfg.Tracker.AutosaveInterval != "0" {
		t.Errorf("autosave_interval = %q, want 0", cfg.Tracker.AutosaveInterval)
	}
	if !cfg.Control.Enabled {
		t.Error("control API disabled by default")
	}
	if got := cfg.ControlAddr(); got != "127.0.0.1:7516" {
		t.Errorf("ControlAddr() = %q", got)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics enabled by default")
	}
	if cfg.AI.Model != "gemini-1.5-flash" {
		t.Errorf("ai model = %q", cfg.AI.Model)
	}
	if cfg.User != "" {
		t.Errorf("user = %q, want empty", cfg.User)
	}
}

func TestLoadFromFile(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	cfg, err := Load(writeConfig(t, `
user: dana
data_dir: `+dataDir+`
logging:
  level: debug
  format: json
tracker:
  tick_interval: 250ms
  autosave_interval: 2m
control:
  port: 7600
ai:
  model: gemini-1.5-pro
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.User != "dana" {
		t.Errorf("user = %q", cfg.User)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Tracker.TickInterval != "250ms" || cfg.Tracker.AutosaveInterval != "2m" {
		t.Errorf("tracker = %+v", cfg.Tracker)
	}
	if cfg.Control.Port != 7600 {
		t.Errorf("control port = %d", cfg.Control.Port)
	}
	if cfg.AI.Model != "gemini-1.5-pro" {
		t.Errorf("ai model = %q", cfg.AI.Model)
	}

	// Load creates the data directory.
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WATTWISE_USER", "erin")
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load(writeConfig(t, "user: dana\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.User != "erin" {
		t.Errorf("user = %q, want env override erin", cfg.User)
	}
	if cfg.AI.APIKey != "test-key" {
		t.Errorf("api key = %q, want value from GOOGLE_API_KEY", cfg.AI.APIKey)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad control port",
			content: "control:\n  enabled: true\n  port: -1\n",
			wantErr: "invalid control port",
		},
		{
			name:    "bad metrics port",
			content: "metrics:\n  enabled: true\n  port: 70000\n",
			wantErr: "invalid metrics port",
		},
		{
			name:    "bad logging format",
			content: "logging:\n  format: xml\n",
			wantErr: "invalid logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadIgnoresBadPortWhenDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, "metrics:\n  enabled: false\n  port: -1\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics unexpectedly enabled")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() succeeded for a missing explicit config file")
	}
}
