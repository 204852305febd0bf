// Package config loads the presenced YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/burrowhq/presence/pkg/directory"
)

// Config is the top-level presence.yml configuration.
type Config struct {
	// RedisURL is the backing store address, e.g. redis://localhost:6379.
	// The REDIS_URL environment variable overrides it.
	RedisURL string `yaml:"redis_url"`

	// Tenant is the namespace prefix. Derived from the connecting
	// principal's identity in deployments; fixed per process here, and
	// immutable for the session.
	Tenant string `yaml:"tenant"`

	// KeyStyle selects the key-naming convention (entity_first or
	// tenant_first). Defaults to entity_first.
	KeyStyle directory.KeyStyle `yaml:"key_style,omitempty"`

	// BoundaryFile is the static boundary definition for map queries.
	BoundaryFile string `yaml:"boundary_file"`

	// VectorFile is the word-vector table backing icon resolution.
	VectorFile string `yaml:"vector_file"`

	// ListenAddr is the HTTP listen address. Defaults to :8080.
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// Load reads and validates a configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.KeyStyle == "" {
		c.KeyStyle = directory.KeyStyleEntityFirst
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.RedisURL = url
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("redis_url is required (or set REDIS_URL)")
	}
	if c.Tenant == "" {
		return fmt.Errorf("tenant is required")
	}
	if err := c.KeyStyle.Validate(); err != nil {
		return err
	}
	if c.BoundaryFile == "" {
		return fmt.Errorf("boundary_file is required")
	}
	if c.VectorFile == "" {
		return fmt.Errorf("vector_file is required")
	}
	return nil
}
