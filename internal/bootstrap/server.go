package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	infragin "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	inframetrics "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/api"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/metrics"
)

const healthCheckTimeout = 3 * time.Second

// SetupHTTPServer creates and configures the HTTP server.
func SetupHTTPServer(cfg *config.Config, components *Components, log logger.Logger) *infragin.Server {
	handler := api.NewHandler(components.Service, log)

	serverConfig := api.ServerConfig{
		Port:         cfg.Service.Port,
		Debug:        cfg.Service.Debug,
		ServiceName:  cfg.Service.Name,
		Version:      cfg.Service.Version,
		JWTSecret:    cfg.Auth.JWTSecret,
		HealthChecks: healthChecks(components),
	}
	if components.Registry != nil {
		serverConfig.Metrics = promhttp.HandlerFor(components.Registry, promhttp.HandlerOpts{})
		serverConfig.HTTPMetrics = inframetrics.NewHTTPMetrics(components.Registry, metrics.Namespace)
	}

	return api.NewServer(handler, serverConfig, log)
}

func healthChecks(components *Components) map[string]infragin.HealthChecker {
	checks := map[string]infragin.HealthChecker{
		"elasticsearch": infragin.PingChecker("elasticsearch", infragin.HealthStatusUnhealthy, func() error {
			client, err := components.Catalog.Registry().Default().Client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()

			res, err := client.Ping(client.Ping.WithContext(ctx))
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("ping returned %s", res.Status())
			}
			return nil
		}),
	}

	if components.History != nil {
		checks["database"] = infragin.PingChecker("database", infragin.HealthStatusDegraded, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return components.History.Ping(ctx)
		})
	}
	return checks
}
