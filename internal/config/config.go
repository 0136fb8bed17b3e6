// Package config handles YAML configuration parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"georeporter/internal/collector"
	"georeporter/internal/template"
)

const (
	DefaultFunction  = "record-location"
	DefaultTimeout   = 10 * time.Second
	DefaultInterval  = 30 * time.Second
	DefaultMode      = "sequential"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultLogOutput = "stderr"
)

// Config is the root configuration structure.
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Session  SessionConfig  `yaml:"session"`
	Reporter ReporterConfig `yaml:"reporter"`
	Location LocationConfig `yaml:"location"`
	Log      LogConfig      `yaml:"log"`

	Thresholds *collector.Thresholds `yaml:"thresholds,omitempty"`
}

// RemoteConfig describes the record-location function endpoint.
type RemoteConfig struct {
	BaseURL  string            `yaml:"base_url"`
	Function string            `yaml:"function"`
	APIKey   string            `yaml:"api_key"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  time.Duration     `yaml:"timeout"`
	MaxRPS   float64           `yaml:"max_rps"` // 0 = unlimited
}

// SessionConfig seeds the session store.
type SessionConfig struct {
	AccessToken string `yaml:"access_token"`
}

// ReporterConfig controls the reporter gate.
type ReporterConfig struct {
	Enabled *bool `yaml:"enabled"` // nil means enabled
}

// IsEnabled reports the configured enable flag, defaulting to true.
func (r ReporterConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// LocationConfig points at a file of recorded readings to replay.
type LocationConfig struct {
	File     string        `yaml:"file"`
	Mode     string        `yaml:"mode"`
	Interval time.Duration `yaml:"interval"`
}

// LogConfig selects log level, format and destination.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// LoadConfig reads and parses a YAML configuration file, expands
// ${env:VAR} placeholders, applies defaults and validates the result.
// Relative location files resolve against the config file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	if cfg.Location.File != "" && !filepath.IsAbs(cfg.Location.File) {
		cfg.Location.File = filepath.Join(filepath.Dir(path), cfg.Location.File)
	}
	return cfg, nil
}

// Parse decodes YAML bytes using lookup for placeholder expansion.
func Parse(data []byte, lookup template.LookupFunc) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.expand(lookup); err != nil {
		return nil, fmt.Errorf("expanding config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expand(lookup template.LookupFunc) error {
	var errs []error
	fields := []struct {
		name string
		ptr  *string
	}{
		{"remote.base_url", &c.Remote.BaseURL},
		{"remote.function", &c.Remote.Function},
		{"remote.api_key", &c.Remote.APIKey},
		{"session.access_token", &c.Session.AccessToken},
		{"location.file", &c.Location.File},
	}
	for _, f := range fields {
		v, err := template.ExpandWith(*f.ptr, lookup)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		*f.ptr = v
	}

	headers, err := template.ExpandMap(c.Remote.Headers, lookup)
	if err != nil {
		errs = append(errs, fmt.Errorf("remote.headers: %w", err))
	} else {
		c.Remote.Headers = headers
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Remote.Function == "" {
		c.Remote.Function = DefaultFunction
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = DefaultTimeout
	}
	if c.Location.Mode == "" {
		c.Location.Mode = DefaultMode
	}
	if c.Location.Interval == 0 {
		c.Location.Interval = DefaultInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.Output == "" {
		c.Log.Output = DefaultLogOutput
	}
}

// Validate checks field values. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Remote.BaseURL == "" {
		errs = append(errs, errors.New("remote.base_url is required"))
	} else if u, err := url.Parse(c.Remote.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("remote.base_url %q must be an absolute http(s) URL", c.Remote.BaseURL))
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must not be negative, got %v", c.Remote.Timeout))
	}
	if c.Remote.MaxRPS < 0 {
		errs = append(errs, fmt.Errorf("remote.max_rps must not be negative, got %v", c.Remote.MaxRPS))
	}
	if c.Location.Mode != "sequential" && c.Location.Mode != "random" {
		errs = append(errs, fmt.Errorf("location.mode must be 'sequential' or 'random', got %q", c.Location.Mode))
	}
	if c.Location.Interval < 0 {
		errs = append(errs, fmt.Errorf("location.interval must not be negative, got %v", c.Location.Interval))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be 'console' or 'json', got %q", c.Log.Format))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("thresholds.%w", err))
	}

	return errors.Join(errs...)
}
