package warranty

import (
	"context"
	"errors"
	"time"

	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
)

// CacheStore is the slice of the store the cache gate needs.
type CacheStore interface {
	GetDeviceBySerial(ctx context.Context, serial string, tenant string) (*storage.Device, error)
}

// CacheGate decides, per device, whether a cached warranty answer makes an
// external lookup unnecessary. "Cached" means the stored record has ever been
// successfully fetched; there is no time-based expiry.
type CacheGate struct {
	store CacheStore
	log   *logger.Logger
}

// NewCacheGate creates a gate reading from the given store.
func NewCacheGate(store CacheStore, log *logger.Logger) *CacheGate {
	return &CacheGate{store: store, log: log}
}

// FilterForLookup splits devices into those needing an external lookup and
// those already covered by the cache. With skipIfCached false every device
// goes to lookup regardless of cache state. A store read failure counts the
// device as uncached; a wasted lookup is cheaper than a silently dropped one.
func (g *CacheGate) FilterForLookup(ctx context.Context, devices []*storage.Device, skipIfCached bool, tenant tenancy.ID) (lookup []*storage.Device, cached []*storage.Device) {
	if !skipIfCached {
		return devices, nil
	}

	for _, device := range devices {
		if device == nil {
			continue
		}
		stored, err := g.store.GetDeviceBySerial(ctx, device.Serial, tenant.String())
		if err != nil {
			if !errors.Is(err, storage.ErrDeviceNotFound) && g.log != nil {
				g.log.Warn("Cache check failed, treating device as uncached",
					"serial", device.Serial, "error", err)
			}
			lookup = append(lookup, device)
			continue
		}
		if isCached(stored, 0) {
			cached = append(cached, stored)
			continue
		}
		lookup = append(lookup, device)
	}

	if g.log != nil {
		g.log.Debug("Cache gate filtered batch",
			"lookup", len(lookup), "cached", len(cached))
	}
	return lookup, cached
}

// isCached reports whether the stored record already holds a fetched answer.
// maxAgeHours > 0 would make fetches older than the window eligible again;
// the gate always passes 0, so any successful fetch counts as cached.
func isCached(device *storage.Device, maxAgeHours int) bool {
	if device == nil || device.WarrantyFetchedAt.IsZero() {
		return false
	}
	if maxAgeHours > 0 {
		return time.Since(device.WarrantyFetchedAt) < time.Duration(maxAgeHours)*time.Hour
	}
	return true
}
