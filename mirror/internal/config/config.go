// Package config handles mirror daemon configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level canvasmirror configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Mirrors []Mirror      `yaml:"mirrors"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	Archive ArchiveConfig `yaml:"archive"`
	Viewer  ViewerConfig  `yaml:"viewer"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	Remote string `yaml:"remote"`

	// Stealth applies anti-automation-detection patches to new tabs.
	Stealth bool `yaml:"stealth"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "100ms" as well as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("config: bad duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Mirror defines one surface to mirror.
type Mirror struct {
	ID                 string            `yaml:"id"`
	URL                string            `yaml:"url"`
	Surface            string            `yaml:"surface"` // CSS selector
	ImageClass         string            `yaml:"image_class"`
	SurfaceClass       string            `yaml:"surface_class"`
	SurfaceAttrs       map[string]string `yaml:"surface_attrs"`
	Format             string            `yaml:"format"`
	Quality            float64           `yaml:"quality"`
	Interval           Duration          `yaml:"interval"` // 0 = manual
	ResolveEvery       Duration          `yaml:"resolve_every"`
	ResolveMaxAttempts int               `yaml:"resolve_max_attempts"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // webhook only
}

// ArchiveConfig enables the SQLite capture history.
type ArchiveConfig struct {
	Path string `yaml:"path"` // empty = no archive
	Keep int    `yaml:"keep"` // captures retained per activation; 0 = all
}

// ViewerConfig enables the HTTP viewer.
type ViewerConfig struct {
	Addr string `yaml:"addr"` // empty = no viewer
}

// LoadFile reads and validates a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts a typo would silently break.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Mirrors))
	for i, m := range c.Mirrors {
		if m.Surface == "" {
			return fmt.Errorf("config: mirrors[%d]: surface selector is required", i)
		}
		if m.ID != "" && seen[m.ID] {
			return fmt.Errorf("config: duplicate mirror id %q", m.ID)
		}
		seen[m.ID] = true
		if m.Quality < 0 || m.Quality > 1 {
			return fmt.Errorf("config: mirrors[%d]: quality %v outside [0,1]", i, m.Quality)
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
