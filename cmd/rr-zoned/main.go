package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/config"
	"github.com/haukened/rr-zoned/internal/dns/repos/persistence"
	"github.com/haukened/rr-zoned/internal/dns/repos/seed"
	"github.com/haukened/rr-zoned/internal/dns/services/manager"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-zoned"
)

// Application holds all the components of the zone service
type Application struct {
	config  *config.AppConfig
	store   persistence.Store
	manager *manager.Manager
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"app":             appName,
		"version":         version,
		"env":             cfg.Env,
		"log_level":       cfg.LogLevel,
		"storage_backend": cfg.StorageBackend,
		"storage_path":    cfg.StoragePath,
		"seed_dir":        cfg.SeedDir,
	}, "Starting RR-ZONED")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "RR-ZONED stopped gracefully")
}

// buildApplication opens storage, loads the zone collection and imports seeds.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	store, err := persistence.Open(persistence.Backend(cfg.StorageBackend), cfg.StoragePath, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	mgr, err := manager.New(manager.ManagerOptions{
		Persistence:     store,
		Clock:           clk,
		Logger:          logger,
		LookupCacheSize: cfg.LookupCacheSize,
		TokenFPRate:     cfg.TokenFPRate,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	if cfg.SeedDir != "" {
		if err := importSeeds(cfg, mgr, logger); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return &Application{
		config:  cfg,
		store:   store,
		manager: mgr,
	}, nil
}

// importSeeds creates any seeded zone that storage does not hold yet.
func importSeeds(cfg *config.AppConfig, mgr *manager.Manager, logger log.Logger) error {
	zones, err := seed.LoadDirectory(cfg.SeedDir)
	if err != nil {
		return fmt.Errorf("failed to load seed directory: %w", err)
	}
	res, err := seed.Apply(mgr, cfg.Actor, zones, logger)
	if err != nil {
		return fmt.Errorf("failed to apply seeds: %w", err)
	}
	logger.Info(map[string]any{
		"seed_dir": cfg.SeedDir,
		"created":  res.ZonesCreated,
		"skipped":  res.ZonesSkipped,
		"records":  res.RecordsCreated,
	}, "Seed import complete")
	return nil
}

// Run publishes the loaded zones and blocks until ctx is cancelled, then closes storage.
func (app *Application) Run(ctx context.Context) error {
	snap := app.manager.Snapshot()
	log.Info(map[string]any{
		"zones":   snap.Len(),
		"records": snap.Count(),
	}, "Zone control plane ready")

	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")
	if err := app.store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
