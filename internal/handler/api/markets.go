package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"FinSight/internal/service/markets"
	xhttp "FinSight/pkg/http"
	xlogger "FinSight/pkg/logger"
)

// MarketsHandler serves stock and crypto market data.
type MarketsHandler struct {
	logger *xlogger.Logger
	svc    *markets.Service
}

func NewMarketsHandler(logger *xlogger.Logger, svc *markets.Service) *MarketsHandler {
	return &MarketsHandler{logger: logger, svc: svc}
}

func (h *MarketsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/stocks", h.StockQuotes)
	g.GET("/stocks/indices", h.Indices)
	g.GET("/stocks/:symbol", h.StockQuote)
	g.GET("/stocks/:symbol/history", h.StockHistory)
	g.GET("/crypto/top", h.TopCryptos)
	g.GET("/crypto/:id", h.CryptoQuote)
}

// StockQuotes serves a comma-separated batch of symbols, used by the
// watchlist view.
func (h *MarketsHandler) StockQuotes(c echo.Context) error {
	raw := c.QueryParam("symbols")
	if raw == "" {
		return xhttp.BadRequestResponse(c, "symbols is required")
	}

	quotes, err := h.svc.StockQuotes(c.Request().Context(), strings.Split(raw, ","))
	if err != nil {
		h.logger.Error("batch quotes failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayError("quotes unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, quotes, int64(len(quotes)))
}

func (h *MarketsHandler) StockQuote(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}

	q, err := h.svc.StockQuote(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Error("stock quote failed",
			xlogger.String("symbol", symbol),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayErrorf("quote for %s unavailable", symbol).WithError(err))
	}
	return xhttp.SuccessResponse(c, q)
}

func (h *MarketsHandler) StockHistory(c echo.Context) error {
	symbol := c.Param("symbol")
	days := xhttp.ParseIntDefault(c.QueryParam("days"), 30)

	points, err := h.svc.DailyHistory(c.Request().Context(), symbol, days)
	if err != nil {
		h.logger.Error("stock history failed",
			xlogger.String("symbol", symbol),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayErrorf("history for %s unavailable", symbol).WithError(err))
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

func (h *MarketsHandler) Indices(c echo.Context) error {
	indices, err := h.svc.Indices(c.Request().Context())
	if err != nil {
		h.logger.Error("indices failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayError("market indices unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, indices, int64(len(indices)))
}

func (h *MarketsHandler) CryptoQuote(c echo.Context) error {
	coinID := c.Param("id")
	q, err := h.svc.CryptoQuote(c.Request().Context(), coinID)
	if err != nil {
		h.logger.Error("crypto quote failed",
			xlogger.String("coin", coinID),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayErrorf("quote for %s unavailable", coinID).WithError(err))
	}
	return xhttp.SuccessResponse(c, q)
}

func (h *MarketsHandler) TopCryptos(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 20)
	coins, err := h.svc.TopCryptos(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("top cryptos failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayError("crypto markets unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, coins, int64(len(coins)))
}
