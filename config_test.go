package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 9080 {
		t.Errorf("default port = %d, want 9080", cfg.Server.HTTPPort)
	}
	if cfg.Database.EffectiveDriver() != "sqlite" {
		t.Errorf("default driver = %q, want sqlite", cfg.Database.EffectiveDriver())
	}
	if cfg.Tenancy.Enabled {
		t.Error("tenancy should be off by default")
	}
	if !cfg.Connectors.Demo {
		t.Error("demo connectors should be on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"tenancy with postgres", func(c *Config) {
			c.Tenancy.Enabled = true
			c.Database.Driver = "postgres"
		}, false},
		{"tenancy with sqlite", func(c *Config) {
			c.Tenancy.Enabled = true
		}, true},
		{"negative workers", func(c *Config) {
			c.Sync.LookupWorkers = -1
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")

	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultConfig().Server.HTTPPort {
		t.Errorf("round-tripped port = %d", cfg.Server.HTTPPort)
	}
}

func TestLoadConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	content := `
[server]
http_port = 8181

[sync]
lookup_workers = 4
skip_if_cached = false

[connectors]
demo = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.HTTPPort != 8181 {
		t.Errorf("port = %d, want 8181", cfg.Server.HTTPPort)
	}
	if cfg.Sync.LookupWorkers != 4 {
		t.Errorf("lookup_workers = %d, want 4", cfg.Sync.LookupWorkers)
	}
	if cfg.Sync.SkipIfCached {
		t.Error("skip_if_cached should be false")
	}
	if cfg.Connectors.Demo {
		t.Error("demo should be false")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_HTTP_PORT", "7070")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SYNC_LOOKUP_WORKERS", "8")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.HTTPPort != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.HTTPPort)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug (lowercased)", cfg.Logging.Level)
	}
	if cfg.Sync.LookupWorkers != 8 {
		t.Errorf("lookup_workers = %d, want 8", cfg.Sync.LookupWorkers)
	}
}

func TestLoadConfigServerLogLevelWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_LOG_LEVEL", "TRACE")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("log level = %q, want trace", cfg.Logging.Level)
	}
}
