// Package config loads and validates the campaign client configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Template  TemplateConfig  `yaml:"template"`
	Throttle  ThrottleConfig  `yaml:"throttle"`
	Logging   LoggingConfig   `yaml:"logging"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Key            string        `yaml:"key"`             // sent as X-API-Key on every request
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-call bound (default: 30s)
}

// AnalyticsConfig contains reconciler settings.
type AnalyticsConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"` // pull channel cadence (default: 15s)
	WindowHours  int           `yaml:"window_hours"`  // hourly report window (default: 24)
}

// TemplateConfig contains token marker settings.
type TemplateConfig struct {
	OpenMarker  string `yaml:"open_marker"`  // default: {
	CloseMarker string `yaml:"close_marker"` // default: }
}

// ThrottleConfig contains default dispatch pacing values.
type ThrottleConfig struct {
	RatePerHour  int `yaml:"rate_per_hour"` // default: 100
	PauseSeconds int `yaml:"pause_seconds"` // default: 0
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DevServerConfig contains local stub backend settings.
type DevServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`   // default: :8000
	EmitInterval time.Duration `yaml:"emit_interval"` // delay between simulated sends (default: 200ms)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with all defaults applied and no backend
// credentials set.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for configuration.
func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8000"
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = 30 * time.Second
	}
	if c.Analytics.PollInterval == 0 {
		c.Analytics.PollInterval = 15 * time.Second
	}
	if c.Analytics.WindowHours == 0 {
		c.Analytics.WindowHours = 24
	}
	if c.Template.OpenMarker == "" {
		c.Template.OpenMarker = "{"
	}
	if c.Template.CloseMarker == "" {
		c.Template.CloseMarker = "}"
	}
	if c.Throttle.RatePerHour == 0 {
		c.Throttle.RatePerHour = 100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.DevServer.ListenAddr == "" {
		c.DevServer.ListenAddr = ":8000"
	}
	if c.DevServer.EmitInterval == 0 {
		c.DevServer.EmitInterval = 200 * time.Millisecond
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.API.RequestTimeout < 0 {
		return fmt.Errorf("api.request_timeout must not be negative")
	}
	if c.Analytics.PollInterval < time.Second {
		return fmt.Errorf("analytics.poll_interval must be at least 1s, got %s", c.Analytics.PollInterval)
	}
	if c.Analytics.WindowHours < 1 {
		return fmt.Errorf("analytics.window_hours must be at least 1, got %d", c.Analytics.WindowHours)
	}
	if c.Template.OpenMarker == c.Template.CloseMarker {
		return fmt.Errorf("template markers must differ, both are %q", c.Template.OpenMarker)
	}
	if c.Throttle.RatePerHour <= 0 {
		return fmt.Errorf("throttle.rate_per_hour must be positive, got %d", c.Throttle.RatePerHour)
	}
	if c.Throttle.PauseSeconds < 0 {
		return fmt.Errorf("throttle.pause_seconds must not be negative, got %d", c.Throttle.PauseSeconds)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}
