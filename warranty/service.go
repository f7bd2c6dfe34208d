package warranty

import (
	"context"
	"fmt"

	"warrantywatch/connector"
	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
)

// Service composes the pipeline stages behind the sync actions the server
// exposes. Every operation resolves the acting tenant first; in multi-tenant
// mode a request with no resolvable tenant fails before any store call.
type Service struct {
	store    storage.Store
	registry *connector.Registry
	resolver tenancy.Resolver
	log      *logger.Logger

	ingestor    *Ingestor
	gate        *CacheGate
	orch        *Orchestrator
	writer      *Coordinator
	onSyncStart func(total int)
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	// Workers bounds the lookup fan-out. Zero means DefaultLookupWorkers.
	Workers int

	// OnProgress receives lookup and write-back progress events.
	OnProgress ProgressFunc

	// OnSyncStart is invoked once per sync run with the number of selected
	// devices, before any lookups are dispatched.
	OnSyncStart func(total int)

	Logger *logger.Logger
}

// NewService builds the pipeline against an explicit store, connector
// registry, and tenant resolver.
func NewService(store storage.Store, registry *connector.Registry, resolver tenancy.Resolver, cfg ServiceConfig) *Service {
	if resolver == nil {
		resolver = tenancy.SingleTenant{}
	}
	return &Service{
		store:       store,
		registry:    registry,
		resolver:    resolver,
		log:         cfg.Logger,
		onSyncStart: cfg.OnSyncStart,
		ingestor:    NewIngestor(store, cfg.Logger),
		gate:        NewCacheGate(store, cfg.Logger),
		orch: NewOrchestrator(store, registry, OrchestratorConfig{
			Workers:    cfg.Workers,
			OnProgress: cfg.OnProgress,
			Logger:     cfg.Logger,
		}),
		writer: NewCoordinator(store, registry, CoordinatorConfig{
			OnProgress: cfg.OnProgress,
			Logger:     cfg.Logger,
		}),
	}
}

// Ingest writes a device batch from one source platform into the pool.
func (s *Service) Ingest(ctx context.Context, devices []*storage.Device, platform storage.Platform) (successCount, errorCount int, err error) {
	tenant, err := s.resolver.CurrentTenant(ctx)
	if err != nil {
		return 0, 0, err
	}
	ok, failed := s.ingestor.Ingest(ctx, devices, platform, tenant)
	return ok, failed, nil
}

// ImportFromPlatform pulls a platform's device inventory through its
// connector and ingests it.
func (s *Service) ImportFromPlatform(ctx context.Context, platform storage.Platform, creds connector.CredentialSet) (successCount, errorCount int, err error) {
	tenant, err := s.resolver.CurrentTenant(ctx)
	if err != nil {
		return 0, 0, err
	}

	conn, found := s.registry.PlatformFor(platform)
	if !found {
		return 0, 0, fmt.Errorf("no connector for platform %q", platform)
	}
	platformCreds, err := creds.ForPlatform(platform)
	if err != nil {
		return 0, 0, err
	}

	devices, err := conn.FetchDevices(ctx, platformCreds)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch devices from %s: %w", platform, err)
	}

	ok, failed := s.ingestor.Ingest(ctx, devices, platform, tenant)
	return ok, failed, nil
}

// SyncOptions selects the devices and behavior of one sync run.
type SyncOptions struct {
	// Platform restricts the run to devices from one source platform.
	// Empty means the whole pool.
	Platform storage.Platform `json:"platform,omitempty"`

	// SkipIfCached excludes devices whose warranty was ever fetched.
	SkipIfCached bool `json:"skip_if_cached"`

	// WriteBack pushes freshly resolved dates to the source platforms
	// after the lookups finish.
	WriteBack bool `json:"write_back"`

	Credentials connector.CredentialSet `json:"credentials,omitempty"`
}

// SyncReport is the caller-facing outcome of one sync run.
type SyncReport struct {
	Total      int               `json:"total"`
	Dispatched int               `json:"dispatched"`
	Cached     int               `json:"cached"`
	Results    []Result          `json:"results"`
	WriteBack  *WriteBackSummary `json:"write_back,omitempty"`
}

// Sync runs the full pipeline: select devices, gate against the cache, fan
// out lookups, and optionally write the fresh dates back. Devices the cache
// gate filtered out still appear in the report, flagged FromCache, so every
// selected device has exactly one result.
func (s *Service) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	tenant, err := s.resolver.CurrentTenant(ctx)
	if err != nil {
		return nil, err
	}

	var devices []*storage.Device
	if opts.Platform != "" {
		devices, err = s.store.ListDevicesByPlatform(ctx, opts.Platform, tenant.String())
	} else {
		devices, err = s.store.ListDevices(ctx, tenant.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if s.onSyncStart != nil {
		s.onSyncStart(len(devices))
	}

	lookup, cachedDevices := s.gate.FilterForLookup(ctx, devices, opts.SkipIfCached, tenant)

	results := s.orch.LookupBatch(ctx, lookup, opts.Credentials, tenant)
	for _, device := range cachedDevices {
		results = append(results, Result{
			Serial:       device.Serial,
			Manufacturer: device.Manufacturer,
			StartDate:    device.WarrantyStart,
			EndDate:      device.WarrantyEnd,
			FetchedAt:    device.WarrantyFetchedAt,
			FromCache:    true,
		})
	}

	report := &SyncReport{
		Total:      len(devices),
		Dispatched: len(lookup),
		Cached:     len(cachedDevices),
		Results:    results,
	}

	if opts.WriteBack {
		summary := s.writer.Run(ctx, report.Results, opts.Credentials, tenant)
		report.WriteBack = &summary
	}

	return report, nil
}

// WriteBack pushes an existing result set to the source platforms without a
// new lookup pass.
func (s *Service) WriteBack(ctx context.Context, results []Result, creds connector.CredentialSet) (*WriteBackSummary, error) {
	tenant, err := s.resolver.CurrentTenant(ctx)
	if err != nil {
		return nil, err
	}
	summary := s.writer.Run(ctx, results, creds, tenant)
	return &summary, nil
}
