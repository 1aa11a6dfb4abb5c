// Package config loads and validates the presenced YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the presence daemon.
type Config struct {
	DataDir        string   `yaml:"data_dir"`
	TickInterval   Duration `yaml:"tick_interval"`
	PersistTimeout Duration `yaml:"persist_timeout"`
	LabelMaxWidth  int      `yaml:"label_max_width"`

	Logging    LoggingConfig   `yaml:"logging"`
	Priorities PriorityConfig  `yaml:"priorities"`
	TTLs       TTLConfig       `yaml:"ttls"`
	Presets    []Preset        `yaml:"presets"`
	Wake       WakeConfig      `yaml:"wake"`
	Generator  GeneratorConfig `yaml:"generator"`
	NATS       NATSConfig      `yaml:"nats"`
	HTTP       HTTPConfig      `yaml:"http"`
	History    HistoryConfig   `yaml:"history"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PriorityConfig maps entry sources to default priority values. The
// arbitration core is priority-value-agnostic; this mapping is the only
// place source ordering is decided.
type PriorityConfig struct {
	Scheduled      int `yaml:"scheduled"`
	ManualOverride int `yaml:"manual_override"`
	ToolPushed     int `yaml:"tool_pushed"`
}

// TTLConfig maps entry sources to the default lifetime applied when a
// submission carries no explicit expiry. Zero means entries of that source
// hold until revoked or superseded.
type TTLConfig struct {
	Scheduled      Duration `yaml:"scheduled"`
	ManualOverride Duration `yaml:"manual_override"`
	ToolPushed     Duration `yaml:"tool_pushed"`
}

// Preset is a named, reusable status definition.
type Preset struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Silent   bool     `yaml:"silent"`
	Duration Duration `yaml:"duration"`
}

// WakeConfig controls the interaction wake hook.
type WakeConfig struct {
	Preset   string   `yaml:"preset"`
	Priority int      `yaml:"priority"`
	Duration Duration `yaml:"duration"`
}

// GeneratorConfig points at the external daily-schedule generator.
type GeneratorConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Timeout  Duration `yaml:"timeout"`
	Retries  int      `yaml:"retries"`
	Backoff  string   `yaml:"backoff"` // fixed|linear|exponential
}

// NATSConfig controls the NATS presence publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// HTTPConfig controls the admin/API server.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// HistoryConfig controls the sqlite transition log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Duration wraps time.Duration with YAML string parsing ("45m", "1h30m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads the configuration file, applies .env overlays and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv substitutes ${VAR} references in fields that commonly carry
// secrets or per-deployment endpoints.
func (c *Config) expandEnv() {
	c.Generator.Endpoint = os.ExpandEnv(c.Generator.Endpoint)
	c.NATS.URL = os.ExpandEnv(c.NATS.URL)
}

// FindPreset returns the preset with the given name, if any.
func (c *Config) FindPreset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
