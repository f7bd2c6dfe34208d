package storage

import (
	"fmt"

	"warrantywatch/common/config"
)

// NewStore creates a Store based on the database configuration.
//
// The sqlite engine is the single-tenant embedded store; it ignores tenant
// arguments entirely. The postgres engine is the multi-tenant store; it
// scopes every statement to the calling tenant and refuses empty tenants.
//
// Example usage:
//
//	cfg := &config.DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "warrantywatch"}
//	store, err := storage.NewStore(cfg)
func NewStore(cfg *config.DatabaseConfig) (Store, error) {
	if cfg == nil {
		cfg = &config.DatabaseConfig{}
	}

	switch driver := cfg.EffectiveDriver(); driver {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "warrantywatch.db"
		}
		return NewSQLiteStore(path)

	case "postgres":
		return NewPostgresStore(cfg)

	default:
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("unsupported database driver: %q (supported: sqlite, postgres)", driver),
		}
	}
}
