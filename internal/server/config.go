package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete hub configuration.
type Config struct {
	Server        ServerConfig `yaml:"server"`
	Store         StoreConfig  `yaml:"store"`
	Audit         AuditConfig  `yaml:"audit"`
	RetestOnStart bool         `yaml:"retest_on_start"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio", "http"
	Address   string `yaml:"address"`
	APIKey    string `yaml:"api_key"` // gates the http transport when set
}

// StoreConfig configures connection persistence.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory", "file", "postgres"
	Path    string `yaml:"path"`    // file backend
	DSN     string `yaml:"dsn"`     // postgres backend
	SealKey string `yaml:"seal_key"`
}

// AuditConfig configures audit logging.
type AuditConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"` // in-memory ring size when no database is configured
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file is given:
// stdio transport, memory-only store, audit to the in-memory ring.
func DefaultConfig() *Config {
	cfg := &Config{RetestOnStart: true}
	cfg.Audit.Enabled = true
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-connections-hub"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q", c.Server.Transport)
	}

	switch c.Store.Backend {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store backend %q requires a path", c.Store.Backend)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store backend %q requires a dsn", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
