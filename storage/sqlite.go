package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)

	"warrantywatch/common/config"
)

// SQLiteStore is the embedded single-tenant engine. Tenant arguments are
// ignored; all rows live under the empty owner sentinel.
type SQLiteStore struct {
	*BaseStore
	dbPath string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists (unless in-memory)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	// Build connection string with pragmas (skip for in-memory databases)
	connStr := dbPath
	if dbPath != ":memory:" {
		connStr += "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-64000&_foreign_keys=ON"
	} else {
		connStr += "?_foreign_keys=ON"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory databases are per-connection; keep the pool at one so every
	// statement sees the same database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{
		BaseStore: NewBaseStore(db, &SQLiteDialect{}, false),
		dbPath:    dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	logInfo("Opened SQLite database", "path", dbPath)

	return store, nil
}

// GetDefaultDBPath returns the platform-specific default database location.
func GetDefaultDBPath() string {
	dataDir, err := config.GetDataDirectory(false)
	if err != nil {
		return "warrantywatch.db"
	}
	return filepath.Join(dataDir, "warrantywatch.db")
}
