// internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	// Server configuration
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Model       string `mapstructure:"model"`
	Redis       string `mapstructure:"redis"`

	// Detection defaults, tunable at runtime over the API
	ConfidenceThreshold float32 `mapstructure:"confidence_threshold"`
	IoUThreshold        float32 `mapstructure:"iou_threshold"`
	TickIntervalMs      int     `mapstructure:"tick_interval_ms"`

	// SnapshotTTLSeconds bounds how long the Redis snapshot outlives the
	// tick that produced it
	SnapshotTTLSeconds int `mapstructure:"snapshot_ttl_seconds"`

	// OpenTelemetry configuration
	OTELEnabled  bool   `mapstructure:"otel_enabled"`
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Feature flags
	UseMockInference bool `mapstructure:"use_mock_inference"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("metrics_port", 9100)
	v.SetDefault("model", "yolov5s.onnx")
	v.SetDefault("redis", "")
	v.SetDefault("confidence_threshold", 0.45)
	v.SetDefault("iou_threshold", 0.45)
	v.SetDefault("tick_interval_ms", 100)
	v.SetDefault("snapshot_ttl_seconds", 10)
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("use_mock_inference", false)
}

// Load loads configuration from environment variables and an optional
// config file. Priority (highest to lowest): env vars > config file >
// defaults; flag overrides are applied by the caller afterwards.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("DETECT_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also honor the OTEL standard env var
	if otelEndpoint := viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"); otelEndpoint != "" {
		v.Set("otel_endpoint", otelEndpoint)
		v.Set("otel_enabled", true)
	}

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/detection-service/")
	v.AddConfigPath("$HOME/.detection-service")

	// Read config file if present (ignore error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; ignore
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithConfigFile loads configuration from a specific config file
func LoadWithConfigFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DETECT_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.Port == c.MetricsPort {
		return fmt.Errorf("port and metrics_port must be different")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %f outside [0,1]", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("iou_threshold %f outside [0,1]", c.IoUThreshold)
	}
	if c.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive, got %d", c.TickIntervalMs)
	}
	if c.SnapshotTTLSeconds <= 0 {
		return fmt.Errorf("snapshot_ttl_seconds must be positive, got %d", c.SnapshotTTLSeconds)
	}
	if c.Model == "" && !c.UseMockInference {
		return fmt.Errorf("model path is required when not using mock inference")
	}
	return nil
}
