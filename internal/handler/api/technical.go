package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"FinSight/internal/service/technical"
	xhttp "FinSight/pkg/http"
	xlogger "FinSight/pkg/logger"
)

// TechnicalHandler serves computed technical indicator snapshots.
type TechnicalHandler struct {
	logger *xlogger.Logger
	svc    *technical.Service
}

func NewTechnicalHandler(logger *xlogger.Logger, svc *technical.Service) *TechnicalHandler {
	return &TechnicalHandler{logger: logger, svc: svc}
}

func (h *TechnicalHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/technical/:symbol", h.Snapshot)
}

func (h *TechnicalHandler) Snapshot(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}

	snapshot, err := h.svc.Get(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Error("technical snapshot failed",
			xlogger.String("symbol", symbol),
			xlogger.Error(err))
		if errors.Is(err, technical.ErrUnavailable) {
			return xhttp.AppErrorResponse(c,
				xhttp.BadGatewayErrorf("price history for %s unavailable", symbol).WithError(err))
		}
		return xhttp.AppErrorResponse(c,
			xhttp.InternalError("technical analysis failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, snapshot)
}
