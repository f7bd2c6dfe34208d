package storage

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound is returned by lookups when no row matches.
var ErrDeviceNotFound = errors.New("device not found")

// ValidationError reports a malformed device rejected before it reaches the
// database. Per-item: ingestion logs it and moves on to the next record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid device: %s %s", e.Field, e.Reason)
}

// ConfigurationError reports a store misconfiguration. Always fatal: a store
// that cannot be built safely must not be used at all.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "storage configuration error: " + e.Reason
}

// validateDevice enforces the minimum shape every engine requires.
func validateDevice(d *Device) error {
	if d == nil {
		return &ValidationError{Field: "device", Reason: "is nil"}
	}
	if d.Serial == "" {
		return &ValidationError{Field: "serial", Reason: "is required"}
	}
	if d.Manufacturer == "" {
		return &ValidationError{Field: "manufacturer", Reason: "is required"}
	}
	return nil
}
