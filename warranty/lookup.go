package warranty

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"warrantywatch/connector"
	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
)

// DefaultLookupWorkers bounds the fan-out to manufacturer APIs. Kept small
// to respect upstream rate limits.
const DefaultLookupWorkers = 2

// LookupStore is the slice of the store the orchestrator needs.
type LookupStore interface {
	SetWarranty(ctx context.Context, serial string, start, end, fetchedAt time.Time, tenant string) error
}

// OrchestratorConfig tunes a lookup orchestrator.
type OrchestratorConfig struct {
	// Workers is the bounded fan-out width. Zero means DefaultLookupWorkers.
	Workers int

	// OnProgress, if set, is invoked after each device completes.
	OnProgress ProgressFunc

	Logger *logger.Logger
}

// Orchestrator fans a device batch out to manufacturer warranty connectors
// with bounded concurrency, collecting one result per input device without
// ever aborting the batch on an individual failure.
type Orchestrator struct {
	store      LookupStore
	registry   *connector.Registry
	workers    int
	onProgress ProgressFunc
	log        *logger.Logger
}

// NewOrchestrator creates a lookup orchestrator.
func NewOrchestrator(store LookupStore, registry *connector.Registry, cfg OrchestratorConfig) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultLookupWorkers
	}
	return &Orchestrator{
		store:      store,
		registry:   registry,
		workers:    workers,
		onProgress: cfg.OnProgress,
		log:        cfg.Logger,
	}
}

// LookupBatch resolves warranty coverage for every device in the batch.
// Exactly one Result comes back per input device: resolved, skipped, or
// errored. Successful lookups are persisted immediately, so a crash or
// cancellation mid-batch loses nothing already resolved. Cancellation stops
// dispatching further devices; in-flight connector calls are left to finish.
func (o *Orchestrator) LookupBatch(ctx context.Context, devices []*storage.Device, creds connector.CredentialSet, tenant tenancy.ID) []Result {
	batchID := uuid.NewString()
	results := make([]Result, len(devices))

	if o.log != nil {
		o.log.Info("Starting warranty lookup batch",
			"batch", batchID, "devices", len(devices), "workers", o.workers)
	}

	var (
		mu        sync.Mutex
		completed int
	)
	reportDone := func(serial string) {
		// The callback runs under the lock so observers see completed
		// counts in order.
		mu.Lock()
		defer mu.Unlock()
		completed++
		if o.onProgress != nil {
			o.onProgress(Progress{Stage: "lookup", Serial: serial, Completed: completed, Total: len(devices)})
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for i, device := range devices {
		if ctx.Err() != nil {
			// Abandoned batch: no further dispatch, but every input still
			// gets exactly one result.
			results[i] = Result{
				Serial:     deviceSerial(device),
				Skipped:    true,
				SkipReason: SkipCanceled,
			}
			reportDone(results[i].Serial)
			continue
		}

		i, device := i, device
		g.Go(func() error {
			results[i] = o.lookupOne(ctx, device, creds, tenant)
			reportDone(results[i].Serial)
			return nil
		})
	}
	g.Wait()

	if o.log != nil {
		var ok, skipped, failed int
		for i := range results {
			switch {
			case results[i].Skipped:
				skipped++
			case results[i].Err != "":
				failed++
			default:
				ok++
			}
		}
		o.log.Info("Warranty lookup batch finished",
			"batch", batchID, "resolved", ok, "skipped", skipped, "failed", failed)
	}
	return results
}

// lookupOne resolves a single device. Every failure path returns a result
// describing it; nothing panics or escalates.
func (o *Orchestrator) lookupOne(ctx context.Context, device *storage.Device, creds connector.CredentialSet, tenant tenancy.ID) Result {
	if device == nil || device.Serial == "" {
		return Result{
			Serial:     deviceSerial(device),
			Skipped:    true,
			SkipReason: SkipMissingSerial,
		}
	}

	result := Result{Serial: device.Serial, Manufacturer: device.Manufacturer}

	conn, ok := o.registry.ManufacturerFor(device.Manufacturer)
	if !ok {
		result.Err = fmt.Sprintf("no warranty connector for manufacturer %q", device.Manufacturer)
		return result
	}

	vendorCreds, err := creds.ForManufacturer(device.Manufacturer)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	info, err := conn.Warranty(ctx, device.Serial, vendorCreds)
	if err != nil {
		result.Err = err.Error()
		if o.log != nil {
			o.log.Warn("Warranty lookup failed",
				"serial", device.Serial, "manufacturer", device.Manufacturer, "error", err)
		}
		return result
	}
	if info == nil || info.EndDate.IsZero() {
		result.Err = "connector returned no warranty end date"
		return result
	}

	result.StartDate = info.StartDate
	result.EndDate = info.EndDate
	result.FetchedAt = time.Now().UTC()

	if err := o.store.SetWarranty(ctx, device.Serial, result.StartDate, result.EndDate, result.FetchedAt, tenant.String()); err != nil {
		result.Err = fmt.Sprintf("failed to persist warranty: %v", err)
		if o.log != nil {
			o.log.Error("Resolved warranty could not be persisted",
				"serial", device.Serial, "error", err)
		}
	}
	return result
}

func deviceSerial(device *storage.Device) string {
	if device == nil {
		return ""
	}
	return device.Serial
}
