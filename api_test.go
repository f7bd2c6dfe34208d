package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"warrantywatch/connector"
	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
	"warrantywatch/warranty"
	"warrantywatch/ws"
)

func newTestAPI(t *testing.T, resolver tenancy.Resolver, tenants *tenancy.InMemoryStore) (*apiServer, http.Handler) {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if resolver == nil {
		resolver = tenancy.SingleTenant{}
	}

	cfg := DefaultConfig()
	registry := connector.NewDemoRegistry()
	log := logger.New(logger.ERROR, "", 10)
	hub := ws.NewHub(log)
	t.Cleanup(hub.Stop)
	broadcaster := ws.NewProgressBroadcaster(hub)

	svc := warranty.NewService(store, registry, resolver, warranty.ServiceConfig{
		OnProgress:  broadcaster.OnProgress,
		OnSyncStart: broadcaster.SyncStarted,
		Logger:      log,
	})

	api := newAPIServer(cfg, store, svc, resolver, tenants, hub, broadcaster, log)
	return api, api.routes()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	_, handler := newTestAPI(t, nil, nil)
	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestIngestAndListDevices(t *testing.T) {
	t.Parallel()

	_, handler := newTestAPI(t, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/devices/ingest", map[string]interface{}{
		"platform": "ninja",
		"devices": []map[string]string{
			{"serial": "NJ1", "manufacturer": "dell", "client_name": "Acme Corp"},
			{"serial": "NJ2", "manufacturer": "hp"},
			{"serial": "", "manufacturer": "dell"}, // rejected
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d: %s", rec.Code, rec.Body.String())
	}

	var ingestResp struct {
		Stored int `json:"stored"`
		Failed int `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ingestResp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if ingestResp.Stored != 2 || ingestResp.Failed != 1 {
		t.Errorf("ingest = %+v, want 2 stored / 1 failed", ingestResp)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/devices?platform=ninja", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listResp struct {
		Count   int               `json:"count"`
		Devices []*storage.Device `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if listResp.Count != 2 {
		t.Errorf("device count = %d, want 2", listResp.Count)
	}
}

func TestIngestRequiresPlatform(t *testing.T) {
	t.Parallel()

	_, handler := newTestAPI(t, nil, nil)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/devices/ingest", map[string]interface{}{
		"devices": []map[string]string{{"serial": "X", "manufacturer": "dell"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSyncEndpointEndToEnd(t *testing.T) {
	t.Parallel()

	_, handler := newTestAPI(t, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/import", map[string]string{"platform": "datto"})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sync", map[string]interface{}{
		"skip_if_cached": true,
		"write_back":     true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body.String())
	}

	var report warranty.SyncReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if report.Total != 3 || report.Dispatched != 3 {
		t.Errorf("report = total %d dispatched %d, want 3/3", report.Total, report.Dispatched)
	}
	if report.WriteBack == nil || report.WriteBack.Succeeded != 3 {
		t.Errorf("write-back = %+v, want 3 successes", report.WriteBack)
	}
}

func TestReportsEndpoint(t *testing.T) {
	t.Parallel()

	_, handler := newTestAPI(t, nil, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/import", map[string]string{"platform": "datto"})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports?type=uncovered_devices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		RowCount int `json:"row_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	// Nothing synced yet: every imported device is uncovered.
	if result.RowCount != 3 {
		t.Errorf("uncovered rows = %d, want 3", result.RowCount)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus report type status = %d, want 400", rec.Code)
	}
}

func TestDeleteDevice(t *testing.T) {
	t.Parallel()

	api, handler := newTestAPI(t, nil, nil)

	ctx := context.Background()
	if err := api.store.UpsertDevice(ctx,
		&storage.Device{Serial: "DEL1", Manufacturer: storage.ManufacturerDell}, ""); err != nil {
		t.Fatalf("failed to seed device: %v", err)
	}
	devices, err := api.store.ListDevices(ctx, "")
	if err != nil || len(devices) != 1 {
		t.Fatalf("seed check failed: %v", err)
	}

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/devices/99999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/devices/"+strconv.FormatInt(devices[0].ID, 10), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMultiTenantRequestsNeedKeys(t *testing.T) {
	t.Parallel()

	tenants := tenancy.NewInMemoryStore()
	_, handler := newTestAPI(t, tenancy.NewMultiTenant(tenants), tenants)

	// Without a key the device listing is refused outright.
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/devices", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no-key status = %d, want 401", rec.Code)
	}

	// Create a tenant and use the issued key.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/tenants", map[string]string{"name": "Acme MSP"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("tenant create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if created.APIKey == "" {
		t.Fatal("no API key returned at tenant creation")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	req.Header.Set("Authorization", "Bearer "+created.APIKey)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("keyed status = %d, want 200: %s", rec2.Code, rec2.Body.String())
	}
}
