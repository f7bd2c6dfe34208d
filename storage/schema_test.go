package storage

import (
	"strings"
	"testing"
)

func TestDeviceSchemaUsesDialectTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		dialect    Dialect
		wantParts  []string
		rejectPart string
	}{
		{
			name:    "sqlite",
			dialect: &SQLiteDialect{},
			wantParts: []string{
				"id INTEGER PRIMARY KEY AUTOINCREMENT",
				"warranty_end DATETIME",
				"DEFAULT CURRENT_TIMESTAMP",
			},
			rejectPart: "BIGSERIAL",
		},
		{
			name:    "postgres",
			dialect: &PostgresDialect{},
			wantParts: []string{
				"id BIGSERIAL PRIMARY KEY",
				"warranty_end TIMESTAMPTZ",
				"DEFAULT NOW()",
			},
			rejectPart: "AUTOINCREMENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ddl := deviceSchema(tt.dialect)
			for _, part := range tt.wantParts {
				if !strings.Contains(ddl, part) {
					t.Errorf("%s schema missing %q", tt.name, part)
				}
			}
			if strings.Contains(ddl, tt.rejectPart) {
				t.Errorf("%s schema must not contain %q", tt.name, tt.rejectPart)
			}
		})
	}
}

func TestUpsertConflictClause(t *testing.T) {
	t.Parallel()

	sq := (&SQLiteDialect{}).UpsertConflict([]string{"serial", "owner_id"})
	if sq != "ON CONFLICT(serial, owner_id) DO UPDATE SET" {
		t.Errorf("sqlite clause = %q", sq)
	}
	pg := (&PostgresDialect{}).UpsertConflict([]string{"version"})
	if pg != "ON CONFLICT (version) DO UPDATE SET" {
		t.Errorf("postgres clause = %q", pg)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	// Re-running against an initialized database must not fail or bump the
	// recorded version.
	if err := store.initSchema(); err != nil {
		t.Fatalf("second initSchema failed: %v", err)
	}

	var version int
	if err := store.DB().QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("schema version = %d, want %d", version, schemaVersion)
	}
}
