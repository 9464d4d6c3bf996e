// Package api exposes the lifecycle service over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/catalog"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/service"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle"
)

// Handler handles HTTP requests for the index lifecycle API.
type Handler struct {
	indexService *service.IndexService
	logger       logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(indexService *service.IndexService, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{indexService: indexService, logger: log}
}

// CreateRequest is the body of POST /api/v1/indexes/:name.
type CreateRequest struct {
	Suffix    string `json:"suffix"`
	SkipAlias bool   `json:"skip_alias"`
}

// SuffixRequest is the body of the alias and mapping routes.
type SuffixRequest struct {
	Suffix string `json:"suffix"`
}

// ResetRequest is the body of POST /api/v1/indexes/:name/reset.
type ResetRequest struct {
	Suffix       string `json:"suffix"`
	KeepPrevious bool   `json:"keep_previous"`
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// respondError maps service and cluster errors to HTTP answers.
func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	log := logger.FromContext(c.Request.Context())

	var serverErr *lifecycle.ServerError
	switch {
	case errors.Is(err, catalog.ErrUnknownIndex), errors.Is(err, service.ErrUnknownCluster):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTarget), errors.Is(err, lifecycle.ErrNoMapping):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrHistoryDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.As(err, &serverErr):
		log.Warn(msg, logger.Int("status", serverErr.Status), logger.Error(err))
		c.JSON(serverErr.Status, gin.H{
			"error": serverErr.Reason,
			"type":  serverErr.Type,
			"index": serverErr.Index,
		})
	default:
		log.Error(msg, logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ListIndexes handles GET /api/v1/indexes
func (h *Handler) ListIndexes(c *gin.Context) {
	statuses, err := h.indexService.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list indexes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"indexes": statuses,
		"count":   len(statuses),
	})
}

// GetIndex handles GET /api/v1/indexes/:name
func (h *Handler) GetIndex(c *gin.Context) {
	status, err := h.indexService.Status(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, "Failed to get index status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CreateIndex handles POST /api/v1/indexes/:name
func (h *Handler) CreateIndex(c *gin.Context) {
	var req CreateRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.indexService.Create(c.Request.Context(), c.Param("name"), req.Suffix, req.SkipAlias)
	if err != nil {
		h.respondError(c, "Failed to create index", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// DeleteIndex handles DELETE /api/v1/indexes/:name
func (h *Handler) DeleteIndex(c *gin.Context) {
	res, err := h.indexService.Delete(c.Request.Context(), c.Param("name"), c.Query("suffix"))
	if err != nil {
		h.respondError(c, "Failed to delete index", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SwapAlias handles PUT /api/v1/indexes/:name/alias
func (h *Handler) SwapAlias(c *gin.Context) {
	var req SuffixRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.indexService.Swap(c.Request.Context(), c.Param("name"), req.Suffix)
	if err != nil {
		h.respondError(c, "Failed to swap alias", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateMapping handles PUT /api/v1/indexes/:name/mapping
func (h *Handler) UpdateMapping(c *gin.Context) {
	var req SuffixRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.indexService.UpdateMapping(c.Request.Context(), c.Param("name"), req.Suffix)
	if err != nil {
		h.respondError(c, "Failed to update mapping", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResetIndex handles POST /api/v1/indexes/:name/reset
func (h *Handler) ResetIndex(c *gin.Context) {
	var req ResetRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.indexService.Reset(c.Request.Context(), c.Param("name"), req.Suffix, req.KeepPrevious)
	if err != nil {
		h.respondError(c, "Failed to reset index", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetHistory handles GET /api/v1/indexes/:name/history
func (h *Handler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.indexService.History(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		h.respondError(c, "Failed to list history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"count":   len(entries),
	})
}

// ClusterHealth handles GET /api/v1/clusters/:id/health
func (h *Handler) ClusterHealth(c *gin.Context) {
	status := c.Query("status")
	if _, err := cluster.ParseStatus(status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.indexService.WaitForCluster(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.respondError(c, "Cluster did not reach status", err)
		return
	}
	if resp == nil {
		resp = lifecycle.Response{}
	}
	c.JSON(http.StatusOK, resp)
}
