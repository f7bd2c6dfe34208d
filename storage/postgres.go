package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import postgres driver
	_ "github.com/jackc/pgx/v5/stdlib"

	"warrantywatch/common/config"
)

// PostgresStore is the multi-tenant relational engine. Every statement is
// predicated on the owner tenant; calls without a tenant id fail instead of
// widening to all tenants.
type PostgresStore struct {
	*BaseStore
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(cfg *config.DatabaseConfig) (*PostgresStore, error) {
	if cfg == nil {
		return nil, &ConfigurationError{Reason: "database config required"}
	}

	dsn := cfg.BuildDSN()
	if dsn == "" {
		return nil, &ConfigurationError{Reason: "could not build postgres DSN: missing connection settings"}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeSecs > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSecs) * time.Second)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{
		BaseStore: NewBaseStore(db, &PostgresDialect{}, true),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize postgres schema: %w", err)
	}

	logInfo("Opened PostgreSQL database", "host", cfg.Host, "database", cfg.Name)

	return store, nil
}
