package storage

import "time"

// MergeDevice merges an incoming device into an existing stored record,
// preferring non-empty incoming fields and retaining existing values as the
// fallback. The store-assigned id always survives the merge.
//
// Warranty fields follow the same rule, which is the point: a later import
// that carries no warranty data can never erase dates a previous lookup
// already fetched.
func MergeDevice(existing *Device, incoming *Device) *Device {
	merged := *existing

	if incoming.Manufacturer != "" {
		merged.Manufacturer = incoming.Manufacturer
	}
	if incoming.Model != "" {
		merged.Model = incoming.Model
	}
	if incoming.Hostname != "" {
		merged.Hostname = incoming.Hostname
	}
	if incoming.DeviceClass != "" {
		merged.DeviceClass = incoming.DeviceClass
	}
	if incoming.SourcePlatform != "" {
		merged.SourcePlatform = incoming.SourcePlatform
	}
	if incoming.SourceDeviceID != "" {
		merged.SourceDeviceID = incoming.SourceDeviceID
	}
	if incoming.ClientID != "" {
		merged.ClientID = incoming.ClientID
	}
	if incoming.ClientName != "" {
		merged.ClientName = incoming.ClientName
	}

	if !incoming.WarrantyStart.IsZero() {
		merged.WarrantyStart = incoming.WarrantyStart
	}
	if !incoming.WarrantyEnd.IsZero() {
		merged.WarrantyEnd = incoming.WarrantyEnd
	}
	if !incoming.WarrantyFetchedAt.IsZero() {
		merged.WarrantyFetchedAt = incoming.WarrantyFetchedAt
	}
	if !incoming.WarrantyWrittenBackAt.IsZero() {
		merged.WarrantyWrittenBackAt = incoming.WarrantyWrittenBackAt
	}

	if merged.FirstSeen.IsZero() {
		merged.FirstSeen = incoming.FirstSeen
	}
	merged.UpdatedAt = time.Now().UTC()

	return &merged
}
