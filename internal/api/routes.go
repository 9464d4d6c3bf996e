package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/gin"
	inframetrics "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/metrics"
)

// RouteOptions configures SetupRoutes.
type RouteOptions struct {
	// JWTSecret guards the mutating routes when set.
	JWTSecret string
	// Metrics is served at GET /metrics when set.
	Metrics http.Handler
	// HTTPMetrics instruments every route when set.
	HTTPMetrics *inframetrics.HTTPMetrics
}

// SetupRoutes configures all API routes. Health routes are registered by
// the server builder.
func SetupRoutes(router *gin.Engine, handler *Handler, opts RouteOptions) {
	if opts.HTTPMetrics != nil {
		router.Use(opts.HTTPMetrics.Middleware())
	}
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := router.Group("/api/v1")

	indexes := v1.Group("/indexes")
	indexes.GET("", handler.ListIndexes)              // GET /api/v1/indexes
	indexes.GET("/:name", handler.GetIndex)           // GET /api/v1/indexes/:name
	indexes.GET("/:name/history", handler.GetHistory) // GET /api/v1/indexes/:name/history

	v1.GET("/clusters/:id/health", handler.ClusterHealth) // GET /api/v1/clusters/:id/health

	protected := infragin.ProtectedGroup(v1, "/indexes", opts.JWTSecret)
	protected.POST("/:name", handler.CreateIndex)          // POST /api/v1/indexes/:name
	protected.DELETE("/:name", handler.DeleteIndex)        // DELETE /api/v1/indexes/:name
	protected.PUT("/:name/alias", handler.SwapAlias)       // PUT /api/v1/indexes/:name/alias
	protected.PUT("/:name/mapping", handler.UpdateMapping) // PUT /api/v1/indexes/:name/mapping
	protected.POST("/:name/reset", handler.ResetIndex)     // POST /api/v1/indexes/:name/reset
}
