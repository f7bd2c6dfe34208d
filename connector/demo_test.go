package connector

import (
	"context"
	"testing"
	"time"

	"warrantywatch/storage"
)

func TestDemoManufacturerIsDeterministic(t *testing.T) {
	t.Parallel()

	demo := &DemoManufacturer{Vendor: storage.ManufacturerDell}
	ctx := context.Background()

	first, err := demo.Warranty(ctx, "DL123", Credentials{})
	if err != nil {
		t.Fatalf("Warranty failed: %v", err)
	}
	second, err := demo.Warranty(ctx, "DL123", Credentials{})
	if err != nil {
		t.Fatalf("Warranty failed: %v", err)
	}

	if !first.StartDate.Equal(second.StartDate) || !first.EndDate.Equal(second.EndDate) {
		t.Errorf("demo answers must be stable per serial: %+v vs %+v", first, second)
	}
	if !first.EndDate.After(first.StartDate) {
		t.Errorf("warranty end %v must follow start %v", first.EndDate, first.StartDate)
	}
}

func TestDemoManufacturerFailSerials(t *testing.T) {
	t.Parallel()

	demo := &DemoManufacturer{
		Vendor:      storage.ManufacturerHP,
		FailSerials: map[string]bool{"BAD1": true},
	}
	if _, err := demo.Warranty(context.Background(), "BAD1", Credentials{}); err == nil {
		t.Error("configured failure serial must fail")
	}
}

func TestDemoPlatformUpdateWarranty(t *testing.T) {
	t.Parallel()

	demo := &DemoPlatform{Source: storage.PlatformDatto}
	end := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	ok, err := demo.UpdateWarranty(context.Background(), "datto-1", end, Credentials{})
	if err != nil || !ok {
		t.Fatalf("UpdateWarranty failed: ok=%v err=%v", ok, err)
	}
	if got, recorded := demo.UpdatedEnd("datto-1"); !recorded || !got.Equal(end) {
		t.Errorf("update not recorded: %v %v", got, recorded)
	}
}

func TestNewDemoRegistryCoversManufacturers(t *testing.T) {
	t.Parallel()

	r := NewDemoRegistry()
	for _, vendor := range []storage.Manufacturer{
		storage.ManufacturerDell,
		storage.ManufacturerHP,
		storage.ManufacturerLenovo,
	} {
		if _, ok := r.ManufacturerFor(vendor); !ok {
			t.Errorf("demo registry missing %s connector", vendor)
		}
	}
	if _, ok := r.PlatformFor(storage.PlatformDatto); !ok {
		t.Error("demo registry missing datto platform connector")
	}
	if _, ok := r.ManufacturerFor("commodore"); ok {
		t.Error("unknown manufacturer must not resolve")
	}
}
