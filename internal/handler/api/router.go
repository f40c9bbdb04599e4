package api

import "github.com/labstack/echo/v4"

// Router registers every API handler on one Echo instance.
type Router struct {
	Chat      *ChatHandler
	Markets   *MarketsHandler
	Technical *TechnicalHandler
	System    *SystemHandler
}

func NewRouter(chat *ChatHandler, m *MarketsHandler, tech *TechnicalHandler, sys *SystemHandler) *Router {
	return &Router{Chat: chat, Markets: m, Technical: tech, System: sys}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.Chat.RegisterRoutes(e)
	r.Markets.RegisterRoutes(e)
	r.Technical.RegisterRoutes(e)
	r.System.RegisterRoutes(e)
}
