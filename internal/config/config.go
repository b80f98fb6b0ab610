// Package config loads and validates drey.yml, the configuration file
// the drey CLI uses to locate a persisted snapshot.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend type enum values for drey.yml.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// DefaultPath is where the CLI looks for configuration unless told
// otherwise with --config.
const DefaultPath = "drey.yml"

// DreyConfig represents the top-level drey.yml configuration.
type DreyConfig struct {
	Key      string        `yaml:"key"`                // Backend entry the snapshot lives under
	Version  int           `yaml:"version,omitempty"`  // Schema version (default 1)
	Compress bool          `yaml:"compress,omitempty"` // Entry is gzip+base64 encoded
	Checksum bool          `yaml:"checksum,omitempty"` // Envelope carries an integrity hash
	Backend  BackendConfig `yaml:"backend"`
}

// BackendConfig selects and configures the storage backend.
type BackendConfig struct {
	Type string `yaml:"type"` // "memory", "file", or "redis"

	// File backend
	Path string `yaml:"path,omitempty"` // Directory holding the entry files

	// Redis backend
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// Validate performs strict validation on the configuration.
func (c *DreyConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("key is required")
	}

	if c.Version < 0 {
		return fmt.Errorf("version must be >= 1, got %d", c.Version)
	}
	if c.Version == 0 {
		c.Version = 1
	}

	switch c.Backend.Type {
	case BackendMemory:
		// Nothing to configure; useful only for dry runs.
	case BackendFile:
		if c.Backend.Path == "" {
			return fmt.Errorf("backend type 'file' requires a path")
		}
	case BackendRedis:
		if c.Backend.Addr == "" {
			return fmt.Errorf("backend type 'redis' requires an addr")
		}
	case "":
		return fmt.Errorf("backend.type is required (one of 'memory', 'file', 'redis')")
	default:
		return fmt.Errorf("unknown backend type: %s (must be 'memory', 'file', or 'redis')", c.Backend.Type)
	}

	return nil
}

// Load reads and validates drey.yml from the specified path.
func Load(path string) (*DreyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config DreyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
