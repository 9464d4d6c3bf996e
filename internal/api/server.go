package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	inframetrics "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/metrics"
)

// Default timeout values. Write allows for cluster health waits.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 90 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	ServiceName  string
	Version      string
	JWTSecret    string
	Metrics      http.Handler
	HTTPMetrics  *inframetrics.HTTPMetrics
	HealthChecks map[string]infragin.HealthChecker
}

// NewServer creates the HTTP server using the infrastructure gin package.
func NewServer(handler *Handler, config ServerConfig, log logger.Logger) *infragin.Server {
	readTimeout := config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}
	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = "index-lifecycle"
	}

	builder := infragin.NewServerBuilder(serviceName, config.Port).
		WithLogger(log).
		WithDebug(config.Debug).
		WithVersion(config.Version).
		WithTimeouts(readTimeout, writeTimeout, defaultIdleTimeout).
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, handler, RouteOptions{
				JWTSecret:   config.JWTSecret,
				Metrics:     config.Metrics,
				HTTPMetrics: config.HTTPMetrics,
			})
		})
	for name, check := range config.HealthChecks {
		builder = builder.WithHealthCheck(name, check)
	}

	return builder.Build()
}
