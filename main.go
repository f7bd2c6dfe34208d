// WarrantyWatch Server - Hardware warranty tracking for MSP device fleets
// Aggregates devices from RMM/PSA platforms, resolves manufacturer warranty
// coverage, and writes the dates back to the source systems.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/kardianos/service"

	"warrantywatch/common/config"
	"warrantywatch/connector"
	"warrantywatch/logger"
	"warrantywatch/storage"
	"warrantywatch/tenancy"
	"warrantywatch/warranty"
	"warrantywatch/ws"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"     // Semantic version (e.g., "0.1.0")
	BuildTime = "unknown" // Build timestamp
	GitCommit = "unknown" // Git commit hash
)

var (
	flagConfig     = flag.String("config", "", "Config file path (default: platform search paths)")
	flagPort       = flag.Int("port", 0, "HTTP port override")
	flagDBPath     = flag.String("db", "", "SQLite database path override")
	flagLogLevel   = flag.String("log-level", "", "Log level override (error, warn, info, debug, trace)")
	flagServiceCmd = flag.String("service", "", "Service command: install, uninstall, start, stop, run")
)

func main() {
	flag.Parse()

	if *flagServiceCmd != "" {
		if err := handleServiceCommand(*flagServiceCmd); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runServer(ctx)
}

// handleServiceCommand installs, controls, or runs the server as a system
// service via kardianos/service.
func handleServiceCommand(cmd string) error {
	prg := &program{}
	svc, err := service.New(prg, getServiceConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	switch cmd {
	case "install":
		if err := setupServiceDirectories(); err != nil {
			return err
		}
		if err := svc.Install(); err != nil {
			return fmt.Errorf("failed to install service: %w", err)
		}
		fmt.Println("Service installed")
		return nil
	case "uninstall":
		if err := svc.Uninstall(); err != nil {
			return fmt.Errorf("failed to uninstall service: %w", err)
		}
		fmt.Println("Service uninstalled")
		return nil
	case "start":
		return svc.Start()
	case "stop":
		return svc.Stop()
	case "run":
		return svc.Run()
	default:
		return fmt.Errorf("unknown service command %q", cmd)
	}
}

// runServer is the real server body, shared by interactive and service modes.
// It returns when ctx is canceled and the HTTP server has drained.
func runServer(ctx context.Context) {
	log.Printf("WarrantyWatch Server %s", Version)
	log.Printf("Build: %s, Commit: %s", BuildTime, GitCommit)
	log.Printf("Go: %s, OS: %s, Arch: %s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	configPath := *flagConfig
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}

	// Flag overrides beat file and environment.
	if *flagPort != 0 {
		cfg.Server.HTTPPort = *flagPort
	}
	if *flagDBPath != "" {
		cfg.Database.Path = *flagDBPath
	}
	if *flagLogLevel != "" {
		cfg.Logging.Level = *flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	logDir, err := config.GetLogDirectory(false)
	if err != nil {
		logDir = filepath.Join(filepath.Dir(storage.GetDefaultDBPath()), "logs")
	}
	serverLogger := logger.New(logger.ParseLevel(cfg.Logging.Level), logDir, 1000)
	serverLogger.Info("Server starting", "version", Version, "driver", cfg.Database.EffectiveDriver())
	storage.SetLogger(serverLogger)

	// Initialize database
	store, err := storage.NewStore(&cfg.Database)
	if err != nil {
		serverLogger.Error("Failed to initialize database", "error", err)
		log.Fatal(err)
	}
	defer store.Close()
	serverLogger.Info("Database initialized successfully")

	// Tenancy: single-tenant passthrough unless enabled.
	var resolver tenancy.Resolver = tenancy.SingleTenant{}
	var tenants *tenancy.InMemoryStore
	if cfg.Tenancy.Enabled {
		tenants = tenancy.NewInMemoryStore()
		resolver = tenancy.NewMultiTenant(tenants)
		serverLogger.Info("Multi-tenant mode enabled")
	}

	// Connector registry. Demo mode wires deterministic synthetic
	// connectors so the full pipeline runs without vendor credentials.
	var registry *connector.Registry
	if cfg.Connectors.Demo {
		registry = connector.NewDemoRegistry()
		serverLogger.Info("Demo connectors enabled")
	} else {
		registry = connector.NewRegistry()
	}

	// Progress hub for dashboard websockets.
	hub := ws.NewHub(serverLogger)
	defer hub.Stop()
	broadcaster := ws.NewProgressBroadcaster(hub)

	syncService := warranty.NewService(store, registry, resolver, warranty.ServiceConfig{
		Workers:     cfg.Sync.LookupWorkers,
		OnProgress:  broadcaster.OnProgress,
		OnSyncStart: broadcaster.SyncStarted,
		Logger:      serverLogger,
	})

	api := newAPIServer(cfg, store, syncService, resolver, tenants, hub, broadcaster, serverLogger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // sync runs can be slow
	}

	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("HTTP server listening", "addr", addr)
		log.Printf("Listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			serverLogger.Error("HTTP server failed", "error", err)
			log.Fatal(err)
		}
	case <-ctx.Done():
		serverLogger.Info("Shutdown requested, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			serverLogger.Warn("Forced shutdown", "error", err)
		}
	}

	serverLogger.Info("Server stopped")
}

// defaultConfigPath probes the platform search paths for an existing config
// file, falling back to the conventional system location.
func defaultConfigPath() string {
	candidates := []string{"server.toml", "config.toml"}
	for _, name := range candidates {
		if path, _, err := config.FindConfigFile(name); err == nil {
			return path
		}
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), "WarrantyWatch", "config.toml")
	}
	return "/etc/warrantywatch/server.toml"
}
