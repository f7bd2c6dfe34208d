package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BaseStore provides the device operations shared by the SQLite and
// PostgreSQL engines. It embeds a *sql.DB connection and a Dialect for
// handling SQL syntax differences.
//
// Query placeholders are written using SQLite style (?) and converted at
// runtime when using PostgreSQL, so every query exists exactly once.
//
// Tenant scoping is fixed at construction. The multi-tenant engine sets
// tenantScoped and every call must carry a tenant id; the embedded engine
// leaves it unset and stores all rows under the empty owner sentinel.
type BaseStore struct {
	db           *sql.DB
	dialect      Dialect
	tenantScoped bool
}

// NewBaseStore creates a BaseStore with the given connection and dialect.
func NewBaseStore(db *sql.DB, dialect Dialect, tenantScoped bool) *BaseStore {
	return &BaseStore{
		db:           db,
		dialect:      dialect,
		tenantScoped: tenantScoped,
	}
}

// DB returns the underlying database connection.
func (s *BaseStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect being used.
func (s *BaseStore) Dialect() Dialect {
	return s.dialect
}

// Close closes the database connection.
func (s *BaseStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// owner resolves the owner column value for a call. In scoped mode an empty
// tenant is a hard error: it must never silently widen to all tenants.
func (s *BaseStore) owner(tenant string) (string, error) {
	if !s.tenantScoped {
		return "", nil
	}
	if tenant == "" {
		return "", &ConfigurationError{Reason: "tenant id required for multi-tenant store"}
	}
	return tenant, nil
}

// query converts SQLite-style ? placeholders to the dialect's format.
func (s *BaseStore) query(q string) string {
	if s.dialect.Name() == "postgres" {
		return ConvertPlaceholders(q)
	}
	return q
}

func (s *BaseStore) execContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.query(query), args...)
}

func (s *BaseStore) queryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.query(query), args...)
}

func (s *BaseStore) queryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.query(query), args...)
}

const deviceColumns = `id, serial, manufacturer, model, hostname, device_class,
	source_platform, source_device_id, client_id, client_name,
	warranty_start, warranty_end, warranty_fetched_at, warranty_written_back_at,
	owner_id, first_seen, updated_at`

// UpsertDevice inserts the device or merges it into the existing row with the
// same serial. The read/modify/write is not wrapped in a transaction;
// concurrent upserts of one serial race and the last write wins per field,
// which is acceptable for the human-triggered, read-mostly workload.
func (s *BaseStore) UpsertDevice(ctx context.Context, device *Device, tenant string) error {
	if err := validateDevice(device); err != nil {
		return err
	}
	owner, err := s.owner(tenant)
	if err != nil {
		return err
	}

	existing, err := s.getDeviceBySerial(ctx, device.Serial, owner)
	if err != nil && !errors.Is(err, ErrDeviceNotFound) {
		return fmt.Errorf("upsert lookup failed: %w", err)
	}

	now := time.Now().UTC()

	if existing != nil {
		merged := MergeDevice(existing, device)
		query := `
			UPDATE devices SET
				manufacturer = ?,
				model = ?,
				hostname = ?,
				device_class = ?,
				source_platform = ?,
				source_device_id = ?,
				client_id = ?,
				client_name = ?,
				warranty_start = ?,
				warranty_end = ?,
				warranty_fetched_at = ?,
				warranty_written_back_at = ?,
				updated_at = ?
			WHERE id = ? AND owner_id = ?
		`
		_, err := s.execContext(ctx, query,
			merged.Manufacturer, merged.Model, merged.Hostname, merged.DeviceClass,
			merged.SourcePlatform, merged.SourceDeviceID, merged.ClientID, merged.ClientName,
			nullTime(merged.WarrantyStart), nullTime(merged.WarrantyEnd),
			nullTime(merged.WarrantyFetchedAt), nullTime(merged.WarrantyWrittenBackAt),
			merged.UpdatedAt, existing.ID, owner)
		if err != nil {
			return fmt.Errorf("failed to update device %s: %w", device.Serial, err)
		}
		device.ID = existing.ID
		logDebug("Merged device", "serial", device.Serial, "id", existing.ID)
		return nil
	}

	if device.FirstSeen.IsZero() {
		device.FirstSeen = now
	}
	device.UpdatedAt = now
	device.OwnerID = owner

	query := `
		INSERT INTO devices (
			serial, manufacturer, model, hostname, device_class,
			source_platform, source_device_id, client_id, client_name,
			warranty_start, warranty_end, warranty_fetched_at, warranty_written_back_at,
			owner_id, first_seen, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err = s.queryRowContext(ctx, query,
		device.Serial, device.Manufacturer, device.Model, device.Hostname, device.DeviceClass,
		device.SourcePlatform, device.SourceDeviceID, device.ClientID, device.ClientName,
		nullTime(device.WarrantyStart), nullTime(device.WarrantyEnd),
		nullTime(device.WarrantyFetchedAt), nullTime(device.WarrantyWrittenBackAt),
		owner, device.FirstSeen, device.UpdatedAt).Scan(&device.ID)
	if err != nil {
		return fmt.Errorf("failed to insert device %s: %w", device.Serial, err)
	}

	logDebug("Inserted device", "serial", device.Serial, "id", device.ID)
	return nil
}

// GetDeviceBySerial retrieves a device by serial number.
func (s *BaseStore) GetDeviceBySerial(ctx context.Context, serial string, tenant string) (*Device, error) {
	owner, err := s.owner(tenant)
	if err != nil {
		return nil, err
	}
	return s.getDeviceBySerial(ctx, serial, owner)
}

func (s *BaseStore) getDeviceBySerial(ctx context.Context, serial string, owner string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE serial = ? AND owner_id = ?`

	rows, err := s.queryContext(ctx, query, serial, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrDeviceNotFound
	}
	return scanDevice(rows)
}

// ListDevices returns every device in the tenant's pool.
func (s *BaseStore) ListDevices(ctx context.Context, tenant string) ([]*Device, error) {
	owner, err := s.owner(tenant)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + deviceColumns + ` FROM devices WHERE owner_id = ? ORDER BY serial`
	return s.listDevices(ctx, query, owner)
}

// ListDevicesByPlatform returns the devices ingested from one source platform.
func (s *BaseStore) ListDevicesByPlatform(ctx context.Context, platform Platform, tenant string) ([]*Device, error) {
	owner, err := s.owner(tenant)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + deviceColumns + ` FROM devices WHERE owner_id = ? AND source_platform = ? ORDER BY serial`
	return s.listDevices(ctx, query, owner, string(platform))
}

func (s *BaseStore) listDevices(ctx context.Context, query string, args ...interface{}) ([]*Device, error) {
	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// DeleteDevice removes a device by its store-assigned id.
func (s *BaseStore) DeleteDevice(ctx context.Context, id int64, tenant string) error {
	owner, err := s.owner(tenant)
	if err != nil {
		return err
	}

	result, err := s.execContext(ctx, `DELETE FROM devices WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrDeviceNotFound
	}

	logInfo("Deleted device", "id", id)
	return nil
}

// ListClients returns the distinct, non-empty client names in the pool.
func (s *BaseStore) ListClients(ctx context.Context, tenant string) ([]string, error) {
	owner, err := s.owner(tenant)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT DISTINCT client_name FROM devices
		WHERE owner_id = ? AND client_name != ''
		ORDER BY client_name
	`
	rows, err := s.queryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		clients = append(clients, name)
	}
	return clients, rows.Err()
}

// CountDevicesByClient tallies devices per client for reporting.
func (s *BaseStore) CountDevicesByClient(ctx context.Context, tenant string) ([]ClientCount, error) {
	owner, err := s.owner(tenant)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT client_id, client_name, COUNT(*) FROM devices
		WHERE owner_id = ?
		GROUP BY client_id, client_name
		ORDER BY client_name
	`
	rows, err := s.queryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ClientCount
	for rows.Next() {
		var c ClientCount
		if err := rows.Scan(&c.ClientID, &c.ClientName, &c.Devices); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// SetWarranty persists resolved warranty dates and the fetch timestamp.
func (s *BaseStore) SetWarranty(ctx context.Context, serial string, start, end, fetchedAt time.Time, tenant string) error {
	owner, err := s.owner(tenant)
	if err != nil {
		return err
	}

	query := `
		UPDATE devices SET
			warranty_start = ?,
			warranty_end = ?,
			warranty_fetched_at = ?,
			updated_at = ?
		WHERE serial = ? AND owner_id = ?
	`
	result, err := s.execContext(ctx, query,
		nullTime(start), nullTime(end), nullTime(fetchedAt), time.Now().UTC(), serial, owner)
	if err != nil {
		return fmt.Errorf("failed to set warranty for %s: %w", serial, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// MarkWrittenBack records a successful warranty push to the source platform.
func (s *BaseStore) MarkWrittenBack(ctx context.Context, serial string, at time.Time, tenant string) error {
	owner, err := s.owner(tenant)
	if err != nil {
		return err
	}

	query := `UPDATE devices SET warranty_written_back_at = ?, updated_at = ? WHERE serial = ? AND owner_id = ?`
	result, err := s.execContext(ctx, query, nullTime(at), time.Now().UTC(), serial, owner)
	if err != nil {
		return fmt.Errorf("failed to mark write-back for %s: %w", serial, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanDevice scans one device row. Warranty timestamps are nullable; zero
// time values round-trip as NULL.
func scanDevice(rows *sql.Rows) (*Device, error) {
	var device Device
	var model, hostname, deviceClass, sourcePlatform, sourceDeviceID sql.NullString
	var clientID, clientName sql.NullString
	var warrantyStart, warrantyEnd, fetchedAt, writtenBackAt sql.NullTime

	err := rows.Scan(
		&device.ID, &device.Serial, &device.Manufacturer, &model, &hostname, &deviceClass,
		&sourcePlatform, &sourceDeviceID, &clientID, &clientName,
		&warrantyStart, &warrantyEnd, &fetchedAt, &writtenBackAt,
		&device.OwnerID, &device.FirstSeen, &device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	device.Model = model.String
	device.Hostname = hostname.String
	device.DeviceClass = deviceClass.String
	device.SourcePlatform = Platform(sourcePlatform.String)
	device.SourceDeviceID = sourceDeviceID.String
	device.ClientID = clientID.String
	device.ClientName = clientName.String
	if warrantyStart.Valid {
		device.WarrantyStart = warrantyStart.Time
	}
	if warrantyEnd.Valid {
		device.WarrantyEnd = warrantyEnd.Time
	}
	if fetchedAt.Valid {
		device.WarrantyFetchedAt = fetchedAt.Time
	}
	if writtenBackAt.Valid {
		device.WarrantyWrittenBackAt = writtenBackAt.Time
	}

	return &device, nil
}

// nullTime maps the zero time to NULL so "never fetched" stays distinguishable
// from any real timestamp.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
