// Package bootstrap wires the index checker server together and runs it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/index-checker/internal/logger"
)

// ServiceName identifies the server in logs, health responses and metrics.
const ServiceName = "index-checker"

// Start loads configuration from configPath, starts every component and
// serves until ctx is cancelled or the process is signalled.
func Start(ctx context.Context, configPath, version string) error {
	started := time.Now()

	// Phase 1: Load config
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Phase 2: Create logger
	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 3: Open the database and apply migrations
	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	// Phase 4: Key-value store (Redis when enabled, memory otherwise)
	kv := SetupKVStore(cfg, log)
	defer kv.Close()

	// Phase 5: Outbound clients
	clients := SetupClients(cfg, log)

	// Phase 6: History search index
	index, err := SetupSearchIndex(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			log.Error("Failed to close search index", logger.Error(closeErr))
		}
	}()

	// Phase 7: Services
	services := SetupServices(cfg, db, kv, clients, index, log)

	// Phase 8: Startup cleanup
	RunStartupCleanup(ctx, services, log)

	// Phase 9: Scheduler
	sched, err := SetupScheduler(ctx, cfg, services, log)
	if err != nil {
		return fmt.Errorf("failed to set up scheduler: %w", err)
	}
	defer sched.Stop()

	// Phase 10: HTTP server
	server := SetupHTTPServer(cfg, db, kv, clients, services, version, started, log)

	if runErr := server.Run(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
