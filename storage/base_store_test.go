package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertDevice_InsertAndGet(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	device := &Device{
		Serial:         "DL123",
		Manufacturer:   ManufacturerDell,
		Model:          "OptiPlex 7090",
		SourcePlatform: PlatformDatto,
		SourceDeviceID: "datto-42",
		ClientName:     "Acme Corp",
	}

	if err := store.UpsertDevice(ctx, device, ""); err != nil {
		t.Fatalf("UpsertDevice failed: %v", err)
	}
	if device.ID == 0 {
		t.Error("upsert must assign a primary key")
	}

	got, err := store.GetDeviceBySerial(ctx, "DL123", "")
	if err != nil {
		t.Fatalf("GetDeviceBySerial failed: %v", err)
	}
	if got.Model != "OptiPlex 7090" || got.SourcePlatform != PlatformDatto {
		t.Errorf("stored device differs: %+v", got)
	}
	if !got.WarrantyFetchedAt.IsZero() {
		t.Errorf("never-looked-up device must have zero WarrantyFetchedAt, got %v", got.WarrantyFetchedAt)
	}
}

func TestUpsertDevice_Validation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		device *Device
	}{
		{"missing serial", &Device{Manufacturer: ManufacturerDell}},
		{"missing manufacturer", &Device{Serial: "X1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpsertDevice(ctx, tt.device, "")
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestUpsertDevice_MergesOnSameSerial(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	first := &Device{
		Serial:       "DL123",
		Manufacturer: ManufacturerDell,
		Model:        "Latitude 5420",
		Hostname:     "ws-01",
	}
	if err := store.UpsertDevice(ctx, first, ""); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &Device{
		Serial:       "DL123",
		Manufacturer: ManufacturerDell,
		Hostname:     "ws-01-renamed",
	}
	if err := store.UpsertDevice(ctx, second, ""); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("merge must keep the original primary key: first=%d second=%d", first.ID, second.ID)
	}

	devices, err := store.ListDevices(ctx, "")
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("re-ingesting a serial must not duplicate the row, got %d rows", len(devices))
	}
	if devices[0].Hostname != "ws-01-renamed" {
		t.Errorf("incoming hostname should win, got %q", devices[0].Hostname)
	}
	if devices[0].Model != "Latitude 5420" {
		t.Errorf("existing model must be retained, got %q", devices[0].Model)
	}
}

func TestUpsertDevice_EmptyWarrantyNeverOverwrites(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	device := &Device{Serial: "DL123", Manufacturer: ManufacturerDell, SourcePlatform: PlatformDatto}
	if err := store.UpsertDevice(ctx, device, ""); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	fetched := time.Now().UTC().Truncate(time.Second)
	if err := store.SetWarranty(ctx, "DL123", start, end, fetched, ""); err != nil {
		t.Fatalf("SetWarranty failed: %v", err)
	}

	// Re-import the same device from a CSV with no warranty columns.
	again := &Device{Serial: "DL123", Manufacturer: ManufacturerDell, SourcePlatform: PlatformCSV}
	if err := store.UpsertDevice(ctx, again, ""); err != nil {
		t.Fatalf("re-import failed: %v", err)
	}

	got, err := store.GetDeviceBySerial(ctx, "DL123", "")
	if err != nil {
		t.Fatalf("GetDeviceBySerial failed: %v", err)
	}
	if !got.WarrantyEnd.Equal(end) {
		t.Errorf("warranty end was erased by re-import: got %v want %v", got.WarrantyEnd, end)
	}
	if got.WarrantyFetchedAt.IsZero() {
		t.Error("warranty fetch timestamp was erased by re-import")
	}
	if got.SourcePlatform != PlatformCSV {
		t.Errorf("platform should follow the latest ingestion, got %q", got.SourcePlatform)
	}
}

func TestSetWarrantyAndMarkWrittenBack(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	device := &Device{Serial: "LN77", Manufacturer: ManufacturerLenovo}
	if err := store.UpsertDevice(ctx, device, ""); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	fetched := time.Now().UTC().Truncate(time.Second)
	end := fetched.AddDate(1, 0, 0)
	if err := store.SetWarranty(ctx, "LN77", time.Time{}, end, fetched, ""); err != nil {
		t.Fatalf("SetWarranty failed: %v", err)
	}

	written := fetched.Add(time.Minute)
	if err := store.MarkWrittenBack(ctx, "LN77", written, ""); err != nil {
		t.Fatalf("MarkWrittenBack failed: %v", err)
	}

	got, err := store.GetDeviceBySerial(ctx, "LN77", "")
	if err != nil {
		t.Fatalf("GetDeviceBySerial failed: %v", err)
	}
	if got.WarrantyWrittenBackAt.Before(got.WarrantyFetchedAt) {
		t.Errorf("written-back timestamp %v precedes fetch timestamp %v",
			got.WarrantyWrittenBackAt, got.WarrantyFetchedAt)
	}

	if err := store.SetWarranty(ctx, "NOPE", time.Time{}, end, fetched, ""); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetWarranty on unknown serial: want ErrDeviceNotFound, got %v", err)
	}
	if err := store.MarkWrittenBack(ctx, "NOPE", written, ""); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("MarkWrittenBack on unknown serial: want ErrDeviceNotFound, got %v", err)
	}
}

func TestListDevicesByPlatformAndDelete(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*Device{
		{Serial: "A1", Manufacturer: ManufacturerDell, SourcePlatform: PlatformDatto},
		{Serial: "B2", Manufacturer: ManufacturerHP, SourcePlatform: PlatformNinja},
		{Serial: "C3", Manufacturer: ManufacturerDell, SourcePlatform: PlatformDatto},
	}
	for _, d := range seed {
		if err := store.UpsertDevice(ctx, d, ""); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}

	datto, err := store.ListDevicesByPlatform(ctx, PlatformDatto, "")
	if err != nil {
		t.Fatalf("ListDevicesByPlatform failed: %v", err)
	}
	if len(datto) != 2 {
		t.Errorf("expected 2 datto devices, got %d", len(datto))
	}

	if err := store.DeleteDevice(ctx, seed[0].ID, ""); err != nil {
		t.Fatalf("DeleteDevice failed: %v", err)
	}
	if _, err := store.GetDeviceBySerial(ctx, "A1", ""); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("deleted device still resolvable: %v", err)
	}

	if err := store.DeleteDevice(ctx, 9999, ""); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("deleting unknown id: want ErrDeviceNotFound, got %v", err)
	}
}

func TestClientReporting(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*Device{
		{Serial: "A1", Manufacturer: ManufacturerDell, ClientID: "c1", ClientName: "Acme Corp"},
		{Serial: "B2", Manufacturer: ManufacturerDell, ClientID: "c1", ClientName: "Acme Corp"},
		{Serial: "C3", Manufacturer: ManufacturerHP, ClientID: "c2", ClientName: "Globex"},
		{Serial: "D4", Manufacturer: ManufacturerHP},
	}
	for _, d := range seed {
		if err := store.UpsertDevice(ctx, d, ""); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}

	clients, err := store.ListClients(ctx, "")
	if err != nil {
		t.Fatalf("ListClients failed: %v", err)
	}
	if len(clients) != 2 || clients[0] != "Acme Corp" || clients[1] != "Globex" {
		t.Errorf("unexpected client list: %v", clients)
	}

	counts, err := store.CountDevicesByClient(ctx, "")
	if err != nil {
		t.Fatalf("CountDevicesByClient failed: %v", err)
	}
	byID := map[string]int{}
	for _, c := range counts {
		byID[c.ClientID] = c.Devices
	}
	if byID["c1"] != 2 || byID["c2"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
