package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"FinSight/internal/domain/models"
	"FinSight/internal/service/ai"
	xhttp "FinSight/pkg/http"
	xlogger "FinSight/pkg/logger"
)

// ChatHandler serves AI chat queries, streamed and unstreamed.
type ChatHandler struct {
	logger *xlogger.Logger
	svc    *ai.Service
}

func NewChatHandler(logger *xlogger.Logger, svc *ai.Service) *ChatHandler {
	return &ChatHandler{logger: logger, svc: svc}
}

func (h *ChatHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/chat")
	g.POST("", h.Query)
	g.POST("/stream", h.QueryStream)
	g.GET("/health", h.Health)
}

func (h *ChatHandler) Query(c echo.Context) error {
	req := &models.ChatQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Answer(c.Request().Context(), *req)
	if err != nil {
		return h.failureResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// QueryStream answers over server-sent events, one event per text delta.
func (h *ChatHandler) QueryStream(c echo.Context) error {
	req := &models.ChatQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	err := h.svc.AnswerStream(c.Request().Context(), *req, func(ev models.StreamEvent) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		w.Flush()
		return nil
	})
	if err != nil {
		// Headers are gone; surface the failure as a terminal event.
		ev := models.StreamEvent{Error: streamErrorMessage(err), Done: true}
		if payload, merr := json.Marshal(ev); merr == nil {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			w.Flush()
		}
		h.logger.Error("chat stream failed", xlogger.Error(err))
	}
	return nil
}

func (h *ChatHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Health(c.Request().Context()))
}

// failureResponse maps service failures onto distinct status codes: 429
// for rate limiting, 504 for timeouts, 502 for backend errors.
func (h *ChatHandler) failureResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return xhttp.AppErrorResponse(c,
			xhttp.TooManyRequestsError("Hourly chat limit reached. Try again later."))
	case errors.Is(err, ai.ErrTimeout):
		return xhttp.AppErrorResponse(c,
			xhttp.TimeoutError("AI request timed out. Try a simpler query."))
	default:
		var upstream *ai.UpstreamError
		if errors.As(err, &upstream) {
			return xhttp.AppErrorResponse(c,
				xhttp.BadGatewayErrorf("%s backend error", upstream.Provider).WithError(err))
		}
		h.logger.Error("chat query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}

func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return "Hourly chat limit reached. Try again later."
	case errors.Is(err, ai.ErrTimeout):
		return "AI request timed out. Try a simpler query."
	default:
		return "Streaming error: " + err.Error()
	}
}
