package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	infraes "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/elasticsearch"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/catalog"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
)

// SetupCatalog builds the cluster registry and the index definitions. The
// default cluster's connection is verified with ping-retry unless
// elasticsearch.skip_ping is set; other clusters connect lazily.
func SetupCatalog(ctx context.Context, cfg *config.Config, configPath string, log logger.Logger) (*catalog.Catalog, error) {
	registry, err := catalog.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("cluster registry: %w", err)
	}

	conn := cfg.Elasticsearch
	if cc, ok := cfg.Clusters[cluster.DefaultID]; ok && cc.Elasticsearch != nil {
		conn = *cc.Elasticsearch
	}

	if !conn.SkipPing {
		esClient, clientErr := infraes.NewClient(ctx, conn, log)
		if clientErr != nil {
			return nil, fmt.Errorf("elasticsearch client: %w", clientErr)
		}
		if setErr := registry.Default().SetClient(esClient); setErr != nil {
			return nil, setErr
		}
		log.Info("Elasticsearch client initialized")
	}

	cat, err := catalog.New(cfg, registry, filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("index catalog: %w", err)
	}
	return cat, nil
}
