package main

import (
	"fmt"
	"os"
	"strings"

	"warrantywatch/common/config"
	"warrantywatch/connector"
)

// Config represents the server configuration
type Config struct {
	Server     ServerConfig          `toml:"server"`
	Database   config.DatabaseConfig `toml:"database"`
	Logging    config.LoggingConfig  `toml:"logging"`
	Tenancy    TenancyConfig         `toml:"tenancy"`
	Sync       SyncConfig            `toml:"sync"`
	Connectors ConnectorsConfig      `toml:"connectors"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	HTTPPort    int    `toml:"http_port"`
	BindAddress string `toml:"bind_address"` // Address to bind to (default: 0.0.0.0 for all interfaces)
}

// TenancyConfig holds flags for multi-tenant operation. Enabled requires the
// postgres driver; every API request must then carry a tenant API key.
type TenancyConfig struct {
	Enabled bool `toml:"enabled"`
}

// SyncConfig tunes the warranty sync pipeline defaults.
type SyncConfig struct {
	// LookupWorkers bounds concurrent manufacturer API calls per batch.
	LookupWorkers int `toml:"lookup_workers"`

	// SkipIfCached is the default cache behavior when a sync request does
	// not specify one.
	SkipIfCached bool `toml:"skip_if_cached"`
}

// ConnectorsConfig selects connector mode and carries API credentials.
type ConnectorsConfig struct {
	// Demo replaces all real connectors with deterministic synthetic ones.
	Demo bool `toml:"demo"`

	Credentials connector.CredentialSet `toml:"credentials"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    9080,
			BindAddress: "0.0.0.0", // Bind to all interfaces by default
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // Empty = use platform default (ProgramData on Windows)
		},
		Logging: config.LoggingConfig{
			Level: "info",
		},
		Tenancy: TenancyConfig{
			Enabled: false,
		},
		Sync: SyncConfig{
			LookupWorkers: 2,
			SkipIfCached:  true,
		},
		Connectors: ConnectorsConfig{
			Demo: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file with environment variable
// overrides applied on top.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if _, err := os.Stat(configPath); err == nil {
		if err := config.LoadTOML(configPath, cfg); err != nil {
			return nil, err
		}
	}

	if val := os.Getenv("SERVER_HTTP_PORT"); val != "" {
		var port int
		if _, err := fmt.Sscanf(val, "%d", &port); err == nil {
			cfg.Server.HTTPPort = port
		}
	}
	if val := os.Getenv("BIND_ADDRESS"); val != "" {
		cfg.Server.BindAddress = val
	}
	if val := os.Getenv("TENANCY_ENABLED"); val != "" {
		cfg.Tenancy.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("SYNC_LOOKUP_WORKERS"); val != "" {
		var v int
		if _, err := fmt.Sscanf(val, "%d", &v); err == nil {
			cfg.Sync.LookupWorkers = v
		}
	}
	if val := os.Getenv("CONNECTORS_DEMO"); val != "" {
		cfg.Connectors.Demo = val == "true" || val == "1"
	}

	// Logging env overrides: generic LOG_LEVEL first, then the server-prefixed
	// variable wins.
	config.ApplyLoggingEnvOverrides(&cfg.Logging)
	if val := os.Getenv("SERVER_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	config.ApplyDatabaseEnvOverrides(&cfg.Database)

	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Tenancy.Enabled && c.Database.EffectiveDriver() != "postgres" {
		return fmt.Errorf("tenancy requires the postgres database driver, got %q", c.Database.EffectiveDriver())
	}
	if c.Sync.LookupWorkers < 0 {
		return fmt.Errorf("sync.lookup_workers must not be negative")
	}
	return nil
}

// WriteDefaultConfig writes a default configuration file
func WriteDefaultConfig(configPath string) error {
	cfg := DefaultConfig()
	return config.WriteDefaultTOML(configPath, cfg)
}
