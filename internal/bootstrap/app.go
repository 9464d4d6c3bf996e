// Package bootstrap handles application initialization and lifecycle
// management for the index-lifecycle service.
package bootstrap

import (
	"context"
	"fmt"

	infraconfig "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/profiling"
)

// DefaultConfigPath is read when CONFIG_PATH is unset.
const DefaultConfigPath = "config.yml"

// Start initializes and runs the index-lifecycle HTTP service until ctx is
// done or the process is signalled.
func Start(ctx context.Context) error {
	// Phase 1: Load config and create logger
	configPath := infraconfig.GetConfigPath(DefaultConfigPath)
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 2: Profiling (both off unless enabled)
	if pprofServer := profiling.StartPprofServer(cfg.Profiling, log); pprofServer != nil {
		defer func() { _ = pprofServer.Close() }()
	}
	profiler, err := profiling.StartPyroscope(cfg.Service.Name, cfg.Service.Version, cfg.Profiling, log)
	if err != nil {
		log.Warn("Continuous profiling disabled", logger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	log.Info("Starting Index Lifecycle Service",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	// Phase 3: Clusters, definitions, history store
	components, err := SetupComponents(ctx, cfg, configPath, log, true)
	if err != nil {
		return err
	}
	defer components.Close(log)

	log.Info("Index definitions loaded", logger.Strings("indexes", components.Catalog.Names()))

	// Phase 4: Setup and run HTTP server
	server := SetupHTTPServer(cfg, components, log)

	if runErr := server.Run(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Index Lifecycle Service stopped")
	return nil
}
