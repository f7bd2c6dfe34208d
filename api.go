package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"warrantywatch/logger"
	"warrantywatch/reports"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
	"warrantywatch/warranty"
	"warrantywatch/ws"
)

// apiServer carries the handler dependencies. Handlers are methods so tests
// can build one against fakes without global state.
type apiServer struct {
	cfg         *Config
	store       storage.Store
	sync        *warranty.Service
	resolver    tenancy.Resolver
	tenants     *tenancy.InMemoryStore
	hub         *ws.Hub
	broadcaster *ws.ProgressBroadcaster
	reports     *reports.Generator
	log         *logger.Logger
}

func newAPIServer(cfg *Config, store storage.Store, sync *warranty.Service, resolver tenancy.Resolver, tenants *tenancy.InMemoryStore, hub *ws.Hub, broadcaster *ws.ProgressBroadcaster, log *logger.Logger) *apiServer {
	return &apiServer{
		cfg:         cfg,
		store:       store,
		sync:        sync,
		resolver:    resolver,
		tenants:     tenants,
		hub:         hub,
		broadcaster: broadcaster,
		reports:     reports.NewGenerator(store),
		log:         log,
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	mux.HandleFunc("/api/v1/devices", s.withAuth(s.handleDevices))
	mux.HandleFunc("/api/v1/devices/", s.withAuth(s.handleDeviceByID))
	mux.HandleFunc("/api/v1/devices/ingest", s.withAuth(s.handleIngest))
	mux.HandleFunc("/api/v1/import", s.withAuth(s.handleImport))
	mux.HandleFunc("/api/v1/sync", s.withAuth(s.handleSync))
	mux.HandleFunc("/api/v1/clients", s.withAuth(s.handleClients))
	mux.HandleFunc("/api/v1/reports", s.withAuth(s.handleReports))

	if s.tenants != nil {
		mux.HandleFunc("/api/v1/tenants", s.handleTenants)
	}

	mux.HandleFunc("/ws/progress", s.handleProgressSocket)

	return mux
}

// withAuth copies a Bearer API key from the request into the context so the
// tenant resolver can see it. In single-tenant mode requests pass through
// untouched; the resolver ignores the key.
func (s *apiServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			key := strings.TrimPrefix(auth, "Bearer ")
			r = r.WithContext(tenancy.WithAPIKey(r.Context(), key))
		}
		next(w, r)
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *apiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	})
}

// handleDevices lists the device pool, optionally filtered by source platform.
func (s *apiServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	tenant, err := s.resolver.CurrentTenant(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	var devices []*storage.Device
	if platform := r.URL.Query().Get("platform"); platform != "" {
		devices, err = s.store.ListDevicesByPlatform(r.Context(), storage.Platform(platform), tenant.String())
	} else {
		devices, err = s.store.ListDevices(r.Context(), tenant.String())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(devices),
		"devices": devices,
	})
}

// handleDeviceByID deletes a device by its store-assigned id.
func (s *apiServer) handleDeviceByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "DELETE only", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/devices/")
	if idStr == "delete" {
		idStr = r.URL.Query().Get("id")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid device id", http.StatusBadRequest)
		return
	}

	tenant, err := s.resolver.CurrentTenant(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteDevice(r.Context(), id, tenant.String()); err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("Device deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// handleIngest accepts a device batch pushed by an external integration.
func (s *apiServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Platform storage.Platform  `json:"platform"`
		Devices  []*storage.Device `json:"devices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warn("Invalid JSON in device ingest", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Platform == "" {
		http.Error(w, "platform is required", http.StatusBadRequest)
		return
	}

	ok, failed, err := s.sync.Ingest(r.Context(), req.Devices, req.Platform)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("Device batch ingested", "platform", req.Platform, "stored", ok, "failed", failed)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"received": len(req.Devices),
		"stored":   ok,
		"failed":   failed,
	})
}

// handleImport pulls a platform's inventory through its connector.
func (s *apiServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Platform storage.Platform `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Platform == "" {
		http.Error(w, "platform is required", http.StatusBadRequest)
		return
	}

	ok, failed, err := s.sync.ImportFromPlatform(r.Context(), req.Platform, s.cfg.Connectors.Credentials)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stored":  ok,
		"failed":  failed,
	})
}

// handleSync runs the warranty pipeline: cache gate, bounded lookup fan-out,
// optional write-back.
func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	opts := warranty.SyncOptions{
		SkipIfCached: s.cfg.Sync.SkipIfCached,
		Credentials:  s.cfg.Connectors.Credentials,
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}
	if len(opts.Credentials.Manufacturers) == 0 && len(opts.Credentials.Platforms) == 0 {
		opts.Credentials = s.cfg.Connectors.Credentials
	}

	report, err := s.sync.Sync(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcaster.SyncFinished(report)

	writeJSON(w, http.StatusOK, report)
}

// handleClients reports the distinct client names and device counts.
func (s *apiServer) handleClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	tenant, err := s.resolver.CurrentTenant(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	counts, err := s.store.CountDevicesByClient(r.Context(), tenant.String())
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(counts),
		"clients": counts,
	})
}

// handleReports generates a warranty report on demand.
func (s *apiServer) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	tenant, err := s.resolver.CurrentTenant(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	params := reports.GenerateParams{
		Type:   r.URL.Query().Get("type"),
		Tenant: tenant.String(),
	}
	if days := r.URL.Query().Get("days"); days != "" {
		if v, err := strconv.Atoi(days); err == nil {
			params.WithinDays = v
		}
	}

	result, err := s.reports.Generate(r.Context(), params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTenants creates tenants and issues API keys. Only mounted in
// multi-tenant mode. Key material is returned exactly once, at issue time.
func (s *apiServer) handleTenants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	tenant, err := s.tenants.CreateTenant(tenancy.Tenant{Name: req.Name})
	if err != nil {
		s.writeError(w, err)
		return
	}
	key, err := s.tenants.IssueKey(tenant.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("Tenant created", "tenant", tenant.ID, "name", req.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"tenant":  tenant,
		"api_key": key,
	})
}

// writeError maps pipeline and store errors onto HTTP status codes.
func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *storage.ValidationError
		configErr     *storage.ConfigurationError
	)
	switch {
	case errors.Is(err, tenancy.ErrAuthenticationRequired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, storage.ErrDeviceNotFound), errors.Is(err, tenancy.ErrTenantNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &validationErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &configErr):
		s.log.Error("Configuration error", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		s.log.Error("Request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
