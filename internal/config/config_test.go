// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, expected 8080", cfg.Port)
	}
	if cfg.MetricsPort != 9100 {
		t.Errorf("MetricsPort = %d, expected 9100", cfg.MetricsPort)
	}
	if cfg.ConfidenceThreshold != 0.45 || cfg.IoUThreshold != 0.45 {
		t.Errorf("Thresholds = %f/%f, expected 0.45/0.45", cfg.ConfidenceThreshold, cfg.IoUThreshold)
	}
	if cfg.TickIntervalMs != 100 {
		t.Errorf("TickIntervalMs = %d, expected 100", cfg.TickIntervalMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DETECT_SERVICE_PORT", "9999")
	t.Setenv("DETECT_SERVICE_TICK_INTERVAL_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, expected env override 9999", cfg.Port)
	}
	if cfg.TickIntervalMs != 250 {
		t.Errorf("TickIntervalMs = %d, expected env override 250", cfg.TickIntervalMs)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "port: 8181\nconfidence_threshold: 0.6\nmodel: custom.onnx\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Writing config file failed: %v", err)
	}

	cfg, err := LoadWithConfigFile(path)
	if err != nil {
		t.Fatalf("LoadWithConfigFile failed: %v", err)
	}

	if cfg.Port != 8181 {
		t.Errorf("Port = %d, expected 8181", cfg.Port)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %f, expected 0.6", cfg.ConfidenceThreshold)
	}
	if cfg.Model != "custom.onnx" {
		t.Errorf("Model = %q, expected custom.onnx", cfg.Model)
	}
	// Unset keys keep their defaults.
	if cfg.MetricsPort != 9100 {
		t.Errorf("MetricsPort = %d, expected default 9100", cfg.MetricsPort)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                8080,
			MetricsPort:         9100,
			Model:               "yolov5s.onnx",
			ConfidenceThreshold: 0.45,
			IoUThreshold:        0.45,
			TickIntervalMs:      100,
			SnapshotTTLSeconds:  10,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"same ports", func(c *Config) { c.MetricsPort = c.Port }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.2 }},
		{"negative iou", func(c *Config) { c.IoUThreshold = -0.5 }},
		{"zero interval", func(c *Config) { c.TickIntervalMs = 0 }},
		{"zero snapshot ttl", func(c *Config) { c.SnapshotTTLSeconds = 0 }},
		{"missing model", func(c *Config) { c.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}

	// Mock inference needs no model path.
	cfg := valid()
	cfg.Model = ""
	cfg.UseMockInference = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Mock config failed validation: %v", err)
	}
}
