package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/catalog"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/database"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/metrics"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/service"
)

// Components are the long-lived dependencies shared by the HTTP service and
// the CLI.
type Components struct {
	Catalog *catalog.Catalog
	Service *service.IndexService
	DB      *sqlx.DB
	History *database.HistoryRepository
	// Registry is nil unless metrics were requested.
	Registry *prometheus.Registry
}

// SetupComponents wires the catalog, the optional history store and,
// when withMetrics is set, a Prometheus registry into an IndexService.
func SetupComponents(
	ctx context.Context,
	cfg *config.Config,
	configPath string,
	log logger.Logger,
	withMetrics bool,
) (*Components, error) {
	cat, err := SetupCatalog(ctx, cfg, configPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to setup Elasticsearch: %w", err)
	}

	db, history, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	c := &Components{Catalog: cat, DB: db, History: history}

	var opts []service.Option
	if history != nil {
		opts = append(opts,
			service.WithObserver(history),
			service.WithHistory(history, cfg.Service.HistoryLimit),
		)
	}
	if withMetrics {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, service.WithObserver(metrics.New(c.Registry)))
	}

	c.Service = service.NewIndexService(cat, log, opts...)
	return c, nil
}

// Close releases the database connection, if any.
func (c *Components) Close(log logger.Logger) {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		log.Error("Failed to close database connection", logger.Error(err))
	}
}
