package storage

import (
	"context"
	"fmt"
	"time"
)

const schemaVersion = 1

// deviceSchema renders the shared DDL for the given dialect. Both engines use
// the same table layout; the dialect supplies the key, timestamp, and default
// expressions that differ between them.
func deviceSchema(d Dialect) string {
	return fmt.Sprintf(`
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at %[2]s NOT NULL DEFAULT %[3]s
	);

	-- Device pool, one row per (serial, owner)
	CREATE TABLE IF NOT EXISTS devices (
		id %[1]s,
		serial TEXT NOT NULL,
		manufacturer TEXT NOT NULL,
		model TEXT,
		hostname TEXT,
		device_class TEXT,
		source_platform TEXT,
		source_device_id TEXT,
		client_id TEXT,
		client_name TEXT,
		warranty_start %[2]s,
		warranty_end %[2]s,
		warranty_fetched_at %[2]s,
		warranty_written_back_at %[2]s,
		owner_id TEXT NOT NULL DEFAULT '',
		first_seen %[2]s NOT NULL DEFAULT %[3]s,
		updated_at %[2]s NOT NULL DEFAULT %[3]s,
		UNIQUE(serial, owner_id)
	);

	CREATE INDEX IF NOT EXISTS idx_devices_owner ON devices(owner_id);
	CREATE INDEX IF NOT EXISTS idx_devices_serial ON devices(serial);
	CREATE INDEX IF NOT EXISTS idx_devices_platform ON devices(source_platform);
	CREATE INDEX IF NOT EXISTS idx_devices_client ON devices(client_id);
	CREATE INDEX IF NOT EXISTS idx_devices_fetched ON devices(warranty_fetched_at);
	`, d.AutoIncrement(), d.TimestampType(), d.CurrentTimestamp())
}

// initSchema creates tables if they don't exist and records the schema
// version, keeping the applied_at stamp current on re-init.
func (s *BaseStore) initSchema() error {
	if _, err := s.db.Exec(deviceSchema(s.dialect)); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if currentVersion < schemaVersion {
		// excluded is valid in both dialects' ON CONFLICT DO UPDATE.
		query := `INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ` +
			s.dialect.UpsertConflict([]string{"version"}) + ` applied_at = excluded.applied_at`
		if _, err := s.execContext(context.Background(), query, schemaVersion, time.Now()); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	return nil
}
