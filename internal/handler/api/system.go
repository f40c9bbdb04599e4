package api

import (
	"github.com/labstack/echo/v4"

	"FinSight/internal/service/store"
	xhttp "FinSight/pkg/http"
	xlogger "FinSight/pkg/logger"
)

// SystemHandler exposes cache introspection and maintenance endpoints.
type SystemHandler struct {
	logger *xlogger.Logger
	store  *store.Store
}

func NewSystemHandler(logger *xlogger.Logger, st *store.Store) *SystemHandler {
	return &SystemHandler{logger: logger, store: st}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/system")
	g.GET("/cache/stats", h.CacheStats)
	g.DELETE("/cache", h.ClearCache)
	g.GET("/health", h.Health)
}

func (h *SystemHandler) CacheStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Stats(c.Request().Context()))
}

func (h *SystemHandler) ClearCache(c echo.Context) error {
	pattern := c.QueryParam("pattern")
	if pattern == "" {
		return xhttp.BadRequestResponse(c, "pattern is required")
	}

	removed, err := h.store.ClearPattern(c.Request().Context(), pattern)
	if err != nil {
		h.logger.Error("cache clear failed",
			xlogger.String("pattern", pattern),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.InternalError("cache clear failed").WithError(err))
	}

	h.logger.Info("cache cleared",
		xlogger.String("pattern", pattern),
		xlogger.Int64("removed", removed))
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"pattern": pattern,
		"removed": removed,
	})
}

func (h *SystemHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"cache":  h.store.Ping(c.Request().Context()),
	})
}
