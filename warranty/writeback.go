package warranty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warrantywatch/connector"
	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
)

// WriteBackStore is the slice of the store the coordinator needs.
type WriteBackStore interface {
	GetDeviceBySerial(ctx context.Context, serial string, tenant string) (*storage.Device, error)
	MarkWrittenBack(ctx context.Context, serial string, at time.Time, tenant string) error
}

// WriteBackSummary aggregates a write-back run for the caller.
type WriteBackSummary struct {
	Eligible  int `json:"eligible"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Coordinator pushes freshly resolved warranty dates back to each device's
// source platform. Strictly sequential: platform APIs rate-limit per caller
// and sequential order keeps per-device auditing straightforward.
type Coordinator struct {
	store      WriteBackStore
	registry   *connector.Registry
	onProgress ProgressFunc
	log        *logger.Logger
}

// CoordinatorConfig tunes a write-back coordinator.
type CoordinatorConfig struct {
	OnProgress ProgressFunc
	Logger     *logger.Logger
}

// NewCoordinator creates a write-back coordinator.
func NewCoordinator(store WriteBackStore, registry *connector.Registry, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		store:      store,
		registry:   registry,
		onProgress: cfg.OnProgress,
		log:        cfg.Logger,
	}
}

// Run writes eligible results back to their source platforms, one at a time.
// A result is eligible only if it resolved fresh data (no error, not skipped,
// not served from cache, not already written back) and carries an end date.
// Results are updated in place; failures are recorded per item and never halt
// the remaining items.
func (c *Coordinator) Run(ctx context.Context, results []Result, creds connector.CredentialSet, tenant tenancy.ID) WriteBackSummary {
	var summary WriteBackSummary

	for i := range results {
		if ctx.Err() != nil {
			// Abandoned run: leave the remaining items untouched.
			break
		}

		r := &results[i]
		if !eligibleForWriteBack(r) {
			summary.Skipped++
			c.reportProgress(r.Serial, i+1, len(results))
			continue
		}
		summary.Eligible++

		if err := c.writeBackOne(ctx, r, creds, tenant); err != nil {
			r.WriteBackErr = err.Error()
			summary.Failed++
			if c.log != nil {
				c.log.Warn("Write-back failed", "serial", r.Serial, "error", err)
			}
		} else if r.WrittenBack {
			summary.Succeeded++
		} else {
			// Source platform has no write-back target (flat-file import).
			summary.Eligible--
			summary.Skipped++
		}

		c.reportProgress(r.Serial, i+1, len(results))
	}

	if c.log != nil {
		c.log.Info("Write-back run finished",
			"eligible", summary.Eligible, "succeeded", summary.Succeeded,
			"failed", summary.Failed, "skipped", summary.Skipped)
	}
	return summary
}

// eligibleForWriteBack applies the filter: only fresh, unsynced, dated
// results reach a platform connector. Cached data is never re-pushed; the
// source presumably already has it.
func eligibleForWriteBack(r *Result) bool {
	return r.Err == "" &&
		!r.Skipped &&
		!r.FromCache &&
		!r.WrittenBack &&
		!r.EndDate.IsZero()
}

// writeBackOne pushes one result. The originating device is resolved by
// serial to recover its platform and platform-native id.
func (c *Coordinator) writeBackOne(ctx context.Context, r *Result, creds connector.CredentialSet, tenant tenancy.ID) error {
	device, err := c.store.GetDeviceBySerial(ctx, r.Serial, tenant.String())
	if err != nil {
		if errors.Is(err, storage.ErrDeviceNotFound) {
			return fmt.Errorf("device %s no longer in pool", r.Serial)
		}
		return fmt.Errorf("failed to resolve device %s: %w", r.Serial, err)
	}

	// Flat-file imports have no system to write back to.
	if device.SourcePlatform == storage.PlatformCSV || device.SourcePlatform == "" {
		r.Skipped = true
		r.SkipReason = SkipNoTarget
		return nil
	}

	conn, ok := c.registry.PlatformFor(device.SourcePlatform)
	if !ok {
		return fmt.Errorf("no connector for platform %q", device.SourcePlatform)
	}

	platformCreds, err := creds.ForPlatform(device.SourcePlatform)
	if err != nil {
		return err
	}

	ok, err = conn.UpdateWarranty(ctx, device.SourceDeviceID, r.EndDate, platformCreds)
	if err != nil {
		return fmt.Errorf("platform update failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("platform %s rejected warranty update for device %s",
			device.SourcePlatform, device.SourceDeviceID)
	}

	now := time.Now().UTC()
	if err := c.store.MarkWrittenBack(ctx, r.Serial, now, tenant.String()); err != nil {
		return fmt.Errorf("platform updated but store mark failed: %w", err)
	}

	r.WrittenBack = true
	return nil
}

func (c *Coordinator) reportProgress(serial string, completed, total int) {
	if c.onProgress != nil {
		c.onProgress(Progress{Stage: "writeback", Serial: serial, Completed: completed, Total: total})
	}
}
