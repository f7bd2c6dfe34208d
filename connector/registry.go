// Package connector defines the external collaborator contracts: warranty
// lookup APIs of hardware manufacturers and device inventories of source
// platforms. The wire protocols themselves live behind these interfaces;
// the pipeline only ever sees per-call results and errors.
package connector

import (
	"context"
	"time"

	"warrantywatch/storage"
)

// WarrantyInfo is a manufacturer's answer for one serial number.
type WarrantyInfo struct {
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	ProductDescription string    `json:"product_description,omitempty"`
}

// ManufacturerConnector looks warranty coverage up at one hardware vendor.
// Each vendor (Dell, HP, Lenovo, ...) implements this interface against its
// own API.
type ManufacturerConnector interface {
	// Manufacturer returns the vendor this connector serves.
	Manufacturer() storage.Manufacturer

	// Warranty resolves coverage dates for a serial number.
	// Fails with an error on API or auth problems; the caller records the
	// failure against the single device and moves on.
	Warranty(ctx context.Context, serial string, creds Credentials) (*WarrantyInfo, error)
}

// PlatformConnector talks to one inventory source system.
type PlatformConnector interface {
	// Platform returns the source system this connector serves.
	Platform() storage.Platform

	// FetchDevices pulls the platform's device inventory.
	FetchDevices(ctx context.Context, creds Credentials) ([]*storage.Device, error)

	// UpdateWarranty pushes a resolved warranty end date back to the
	// platform's record for the device. Returns false when the platform
	// rejected the update without an API error.
	UpdateWarranty(ctx context.Context, deviceID string, end time.Time, creds Credentials) (bool, error)
}

// Registry holds the connector instances a pipeline dispatches to. It is
// built explicitly at startup and injected, so tests swap in fakes freely.
type Registry struct {
	manufacturers map[storage.Manufacturer]ManufacturerConnector
	platforms     map[storage.Platform]PlatformConnector
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{
		manufacturers: make(map[storage.Manufacturer]ManufacturerConnector),
		platforms:     make(map[storage.Platform]PlatformConnector),
	}
}

// RegisterManufacturer adds a manufacturer connector. The last registration
// for a vendor wins.
func (r *Registry) RegisterManufacturer(c ManufacturerConnector) {
	r.manufacturers[c.Manufacturer()] = c
}

// RegisterPlatform adds a platform connector.
func (r *Registry) RegisterPlatform(c PlatformConnector) {
	r.platforms[c.Platform()] = c
}

// ManufacturerFor returns the connector for a vendor, if one is registered.
func (r *Registry) ManufacturerFor(m storage.Manufacturer) (ManufacturerConnector, bool) {
	c, ok := r.manufacturers[m]
	return c, ok
}

// PlatformFor returns the connector for a platform, if one is registered.
func (r *Registry) PlatformFor(p storage.Platform) (PlatformConnector, bool) {
	c, ok := r.platforms[p]
	return c, ok
}

// Manufacturers lists the registered vendors.
func (r *Registry) Manufacturers() []storage.Manufacturer {
	out := make([]storage.Manufacturer, 0, len(r.manufacturers))
	for m := range r.manufacturers {
		out = append(out, m)
	}
	return out
}
