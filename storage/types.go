package storage

import (
	"context"
	"time"
)

// Manufacturer identifies a hardware vendor with a warranty lookup API.
type Manufacturer string

const (
	ManufacturerDell      Manufacturer = "dell"
	ManufacturerHP        Manufacturer = "hp"
	ManufacturerLenovo    Manufacturer = "lenovo"
	ManufacturerApple     Manufacturer = "apple"
	ManufacturerMicrosoft Manufacturer = "microsoft"
	ManufacturerToshiba   Manufacturer = "toshiba"
)

// Platform identifies an inventory source system. Devices carry the platform
// they were ingested from so warranty dates can be written back to it.
type Platform string

const (
	PlatformDatto    Platform = "datto"
	PlatformNinja    Platform = "ninja"
	PlatformNCentral Platform = "ncentral"
	PlatformAutotask Platform = "autotask"

	// PlatformCSV marks devices imported from a flat file. There is no
	// upstream system to write warranty dates back to.
	PlatformCSV Platform = "csv"
)

// Device is the canonical record for one physical asset in the pool.
// A device is unique by serial number within a tenant; re-ingesting the same
// serial merges into the existing row instead of creating a duplicate.
type Device struct {
	ID           int64        `json:"id"`
	Serial       string       `json:"serial"`
	Manufacturer Manufacturer `json:"manufacturer"`
	Model        string       `json:"model,omitempty"`
	Hostname     string       `json:"hostname,omitempty"`
	DeviceClass  string       `json:"device_class,omitempty"`

	// Provenance: which platform produced this record and the device's
	// native id there. Used to target write-back.
	SourcePlatform Platform `json:"source_platform,omitempty"`
	SourceDeviceID string   `json:"source_device_id,omitempty"`

	// The MSP's sub-customer that owns the device.
	ClientID   string `json:"client_id,omitempty"`
	ClientName string `json:"client_name,omitempty"`

	WarrantyStart time.Time `json:"warranty_start,omitempty"`
	WarrantyEnd   time.Time `json:"warranty_end,omitempty"`

	// WarrantyFetchedAt is set iff at least one external lookup succeeded.
	// Zero means "never looked up", not "no warranty".
	WarrantyFetchedAt     time.Time `json:"warranty_fetched_at,omitempty"`
	WarrantyWrittenBackAt time.Time `json:"warranty_written_back_at,omitempty"`

	// OwnerID is the tenant the device belongs to. Populated only by the
	// multi-tenant engine.
	OwnerID string `json:"owner_id,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientCount is one row of the per-client device tally.
type ClientCount struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	Devices    int    `json:"devices"`
}

// Store is the device record store contract. Both engines implement it: the
// embedded single-tenant engine ignores the tenant argument, the relational
// multi-tenant engine predicates every statement on it and rejects an empty
// tenant outright.
type Store interface {
	// UpsertDevice inserts the device or merges it into the existing row
	// with the same serial. See MergeDevice for the field rules.
	UpsertDevice(ctx context.Context, device *Device, tenant string) error

	GetDeviceBySerial(ctx context.Context, serial string, tenant string) (*Device, error)
	ListDevices(ctx context.Context, tenant string) ([]*Device, error)
	ListDevicesByPlatform(ctx context.Context, platform Platform, tenant string) ([]*Device, error)

	// DeleteDevice removes a device by its store-assigned id. Pool cleanup
	// is the only path that deletes; nothing removes devices implicitly.
	DeleteDevice(ctx context.Context, id int64, tenant string) error

	ListClients(ctx context.Context, tenant string) ([]string, error)
	CountDevicesByClient(ctx context.Context, tenant string) ([]ClientCount, error)

	// SetWarranty persists freshly resolved warranty dates for a serial.
	// Called by the lookup pipeline immediately after each successful
	// connector call so a crash mid-batch loses nothing already resolved.
	SetWarranty(ctx context.Context, serial string, start, end, fetchedAt time.Time, tenant string) error

	// MarkWrittenBack records a successful push of warranty data to the
	// device's source platform.
	MarkWrittenBack(ctx context.Context, serial string, at time.Time, tenant string) error

	Close() error
}
