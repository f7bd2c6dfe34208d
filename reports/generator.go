// Package reports generates warranty coverage reports from stored device
// data. Reports are computed on demand from the pool; nothing is persisted.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warrantywatch/storage"
)

// Report types.
const (
	TypeDeviceInventory  = "device_inventory"
	TypeWarrantyExpiry   = "warranty_expiry"
	TypeWarrantyCoverage = "warranty_coverage"
	TypeUncoveredDevices = "uncovered_devices"
)

// GeneratorStore defines the store interface needed by the generator.
type GeneratorStore interface {
	ListDevices(ctx context.Context, tenant string) ([]*storage.Device, error)
}

// Generator generates reports from stored data.
type Generator struct {
	store GeneratorStore
}

// NewGenerator creates a new report generator.
func NewGenerator(store GeneratorStore) *Generator {
	return &Generator{store: store}
}

// GenerateResult holds the result of report generation.
type GenerateResult struct {
	Rows     []map[string]any  `json:"rows,omitempty"`
	Columns  []string          `json:"columns,omitempty"`
	Summary  map[string]any    `json:"summary,omitempty"`
	RowCount int               `json:"row_count"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GenerateParams defines parameters for report generation.
type GenerateParams struct {
	Type string

	// WithinDays bounds the warranty_expiry report: devices whose coverage
	// ends within this many days. Zero means 90.
	WithinDays int

	// Tenant scopes the report in multi-tenant mode.
	Tenant string
}

// Generate generates a report of the requested type.
func (g *Generator) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	switch params.Type {
	case TypeDeviceInventory:
		return g.generateDeviceInventory(ctx, params)
	case TypeWarrantyExpiry:
		return g.generateWarrantyExpiry(ctx, params)
	case TypeWarrantyCoverage:
		return g.generateWarrantyCoverage(ctx, params)
	case TypeUncoveredDevices:
		return g.generateUncoveredDevices(ctx, params)
	default:
		return nil, fmt.Errorf("unsupported report type: %s", params.Type)
	}
}

func (g *Generator) generateDeviceInventory(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	devices, err := g.store.ListDevices(ctx, params.Tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	rows := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, map[string]any{
			"serial":       d.Serial,
			"manufacturer": string(d.Manufacturer),
			"model":        d.Model,
			"hostname":     d.Hostname,
			"client":       d.ClientName,
			"platform":     string(d.SourcePlatform),
			"warranty_end": formatDate(d.WarrantyEnd),
			"written_back": !d.WarrantyWrittenBackAt.IsZero(),
			"first_seen":   formatDate(d.FirstSeen),
		})
	}

	return &GenerateResult{
		Rows:     rows,
		Columns:  []string{"serial", "manufacturer", "model", "hostname", "client", "platform", "warranty_end", "written_back", "first_seen"},
		RowCount: len(rows),
		Metadata: map[string]string{"report_type": TypeDeviceInventory},
	}, nil
}

// generateWarrantyExpiry lists devices whose coverage ends within the window,
// soonest first. Devices with no warranty data are excluded; they belong in
// the uncovered_devices report.
func (g *Generator) generateWarrantyExpiry(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	devices, err := g.store.ListDevices(ctx, params.Tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	days := params.WithinDays
	if days <= 0 {
		days = 90
	}
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, days)

	var expiring []*storage.Device
	for _, d := range devices {
		if d.WarrantyEnd.IsZero() || d.WarrantyEnd.After(cutoff) {
			continue
		}
		expiring = append(expiring, d)
	}
	sort.Slice(expiring, func(i, j int) bool {
		return expiring[i].WarrantyEnd.Before(expiring[j].WarrantyEnd)
	})

	expired := 0
	rows := make([]map[string]any, 0, len(expiring))
	for _, d := range expiring {
		daysLeft := int(time.Until(d.WarrantyEnd).Hours() / 24)
		if d.WarrantyEnd.Before(now) {
			expired++
		}
		rows = append(rows, map[string]any{
			"serial":       d.Serial,
			"manufacturer": string(d.Manufacturer),
			"model":        d.Model,
			"client":       d.ClientName,
			"warranty_end": formatDate(d.WarrantyEnd),
			"days_left":    daysLeft,
			"expired":      d.WarrantyEnd.Before(now),
		})
	}

	return &GenerateResult{
		Rows:     rows,
		Columns:  []string{"serial", "manufacturer", "model", "client", "warranty_end", "days_left", "expired"},
		RowCount: len(rows),
		Summary: map[string]any{
			"total_devices": len(devices),
			"expiring":      len(rows) - expired,
			"expired":       expired,
			"window_days":   days,
		},
		Metadata: map[string]string{"report_type": TypeWarrantyExpiry},
	}, nil
}

// generateWarrantyCoverage aggregates coverage state per client.
func (g *Generator) generateWarrantyCoverage(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	devices, err := g.store.ListDevices(ctx, params.Tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	type bucket struct {
		total, covered, expired, unknown int
	}
	now := time.Now().UTC()
	byClient := make(map[string]*bucket)
	for _, d := range devices {
		client := d.ClientName
		if client == "" {
			client = "(unassigned)"
		}
		b := byClient[client]
		if b == nil {
			b = &bucket{}
			byClient[client] = b
		}
		b.total++
		switch {
		case d.WarrantyEnd.IsZero():
			b.unknown++
		case d.WarrantyEnd.Before(now):
			b.expired++
		default:
			b.covered++
		}
	}

	names := make([]string, 0, len(byClient))
	for name := range byClient {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]map[string]any, 0, len(names))
	var totalCovered, totalExpired, totalUnknown int
	for _, name := range names {
		b := byClient[name]
		totalCovered += b.covered
		totalExpired += b.expired
		totalUnknown += b.unknown
		rows = append(rows, map[string]any{
			"client":   name,
			"devices":  b.total,
			"covered":  b.covered,
			"expired":  b.expired,
			"unknown":  b.unknown,
			"coverage": coverageRatio(b.covered, b.total),
		})
	}

	return &GenerateResult{
		Rows:     rows,
		Columns:  []string{"client", "devices", "covered", "expired", "unknown", "coverage"},
		RowCount: len(rows),
		Summary: map[string]any{
			"total_devices": len(devices),
			"covered":       totalCovered,
			"expired":       totalExpired,
			"unknown":       totalUnknown,
		},
		Metadata: map[string]string{"report_type": TypeWarrantyCoverage},
	}, nil
}

// generateUncoveredDevices lists devices that have never resolved warranty
// data, the usual targets of the next sync run.
func (g *Generator) generateUncoveredDevices(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	devices, err := g.store.ListDevices(ctx, params.Tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	rows := make([]map[string]any, 0)
	for _, d := range devices {
		if !d.WarrantyFetchedAt.IsZero() {
			continue
		}
		rows = append(rows, map[string]any{
			"serial":       d.Serial,
			"manufacturer": string(d.Manufacturer),
			"model":        d.Model,
			"client":       d.ClientName,
			"platform":     string(d.SourcePlatform),
			"first_seen":   formatDate(d.FirstSeen),
		})
	}

	return &GenerateResult{
		Rows:     rows,
		Columns:  []string{"serial", "manufacturer", "model", "client", "platform", "first_seen"},
		RowCount: len(rows),
		Summary: map[string]any{
			"total_devices": len(devices),
			"uncovered":     len(rows),
		},
		Metadata: map[string]string{"report_type": TypeUncoveredDevices},
	}, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func coverageRatio(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}
