package warranty

import (
	"context"

	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
)

// IngestStore is the slice of the store the ingestor needs.
type IngestStore interface {
	UpsertDevice(ctx context.Context, device *storage.Device, tenant string) error
}

// Ingestor normalizes device batches from any source into store writes.
type Ingestor struct {
	store IngestStore
	log   *logger.Logger
}

// NewIngestor creates an ingestor writing to the given store.
func NewIngestor(store IngestStore, log *logger.Logger) *Ingestor {
	return &Ingestor{store: store, log: log}
}

// Ingest upserts a batch of devices from one source platform. Each device is
// stamped with the platform; a missing source device id defaults to the
// serial so write-back always has a target handle. A malformed record is
// counted and skipped, never fatal for the rest of the batch.
func (i *Ingestor) Ingest(ctx context.Context, devices []*storage.Device, platform storage.Platform, tenant tenancy.ID) (successCount, errorCount int) {
	for _, device := range devices {
		if device == nil {
			errorCount++
			continue
		}

		device.SourcePlatform = platform
		if device.SourceDeviceID == "" {
			device.SourceDeviceID = device.Serial
		}

		if err := i.store.UpsertDevice(ctx, device, tenant.String()); err != nil {
			errorCount++
			if i.log != nil {
				i.log.Warn("Device rejected during ingestion",
					"serial", device.Serial, "platform", platform, "error", err)
			}
			continue
		}
		successCount++
	}

	if i.log != nil {
		i.log.Info("Ingested device batch",
			"platform", platform, "ok", successCount, "failed", errorCount)
	}
	return successCount, errorCount
}
