package connector

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"warrantywatch/storage"
)

// DemoManufacturer returns synthetic warranty data for evaluation installs
// without vendor API credentials. Answers are deterministic per serial so
// repeated demo runs stay stable.
type DemoManufacturer struct {
	Vendor storage.Manufacturer

	// FailSerials lists serials that simulate an API failure.
	FailSerials map[string]bool
}

var _ ManufacturerConnector = (*DemoManufacturer)(nil)

func (d *DemoManufacturer) Manufacturer() storage.Manufacturer {
	return d.Vendor
}

func (d *DemoManufacturer) Warranty(ctx context.Context, serial string, creds Credentials) (*WarrantyInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.FailSerials[serial] {
		return nil, fmt.Errorf("demo %s api: lookup failed for %s", d.Vendor, serial)
	}

	start := demoPurchaseDate(serial)
	return &WarrantyInfo{
		StartDate:          start,
		EndDate:            start.AddDate(3, 0, 0),
		ProductDescription: fmt.Sprintf("%s demo device %s", d.Vendor, serial),
	}, nil
}

// demoPurchaseDate derives a stable pseudo-random purchase date from the
// serial: somewhere in the two years before the demo epoch.
func demoPurchaseDate(serial string) time.Time {
	h := fnv.New32a()
	h.Write([]byte(serial))
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return epoch.AddDate(0, 0, -int(h.Sum32()%730))
}

// DemoPlatform is a synthetic inventory source. It serves a fixed device
// list and accepts warranty updates, remembering them for inspection.
type DemoPlatform struct {
	Source  storage.Platform
	Devices []*storage.Device

	// FailDeviceIDs lists device ids whose update simulates a failure.
	FailDeviceIDs map[string]bool

	mu      sync.Mutex
	updated map[string]time.Time
}

var _ PlatformConnector = (*DemoPlatform)(nil)

func (d *DemoPlatform) Platform() storage.Platform {
	return d.Source
}

func (d *DemoPlatform) FetchDevices(ctx context.Context, creds Credentials) ([]*storage.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*storage.Device, 0, len(d.Devices))
	for _, dev := range d.Devices {
		copied := *dev
		out = append(out, &copied)
	}
	return out, nil
}

func (d *DemoPlatform) UpdateWarranty(ctx context.Context, deviceID string, end time.Time, creds Credentials) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if d.FailDeviceIDs[deviceID] {
		return false, fmt.Errorf("demo %s api: update rejected for device %s", d.Source, deviceID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updated == nil {
		d.updated = make(map[string]time.Time)
	}
	d.updated[deviceID] = end
	return true, nil
}

// UpdatedEnd reports the warranty end recorded for a device id, if any.
func (d *DemoPlatform) UpdatedEnd(deviceID string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	end, ok := d.updated[deviceID]
	return end, ok
}

// NewDemoRegistry builds a registry wired entirely with demo connectors,
// one per supported manufacturer plus a demo inventory platform.
func NewDemoRegistry() *Registry {
	r := NewRegistry()
	for _, vendor := range []storage.Manufacturer{
		storage.ManufacturerDell,
		storage.ManufacturerHP,
		storage.ManufacturerLenovo,
		storage.ManufacturerApple,
		storage.ManufacturerMicrosoft,
		storage.ManufacturerToshiba,
	} {
		r.RegisterManufacturer(&DemoManufacturer{Vendor: vendor})
	}
	r.RegisterPlatform(&DemoPlatform{
		Source: storage.PlatformDatto,
		Devices: []*storage.Device{
			{Serial: "DL123", Manufacturer: storage.ManufacturerDell, Model: "OptiPlex 7090", SourceDeviceID: "datto-1", ClientName: "Acme Corp"},
			{Serial: "HP456", Manufacturer: storage.ManufacturerHP, Model: "EliteBook 840", SourceDeviceID: "datto-2", ClientName: "Acme Corp"},
			{Serial: "LN789", Manufacturer: storage.ManufacturerLenovo, Model: "ThinkPad T14", SourceDeviceID: "datto-3", ClientName: "Globex"},
		},
	})
	return r
}
