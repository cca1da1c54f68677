package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/handler"
)

// registerOrders mounts the customer reservation endpoints. Any signed-in
// account may hold reservations.
func registerOrders(e *echo.Echo, h *handler.OrderHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/order", auth, limit)
	g.GET("/history", h.History)
	g.POST("/reserve", h.Reserve)
	g.POST("/confirm", h.Confirm)
	g.POST("/cancel", h.Cancel)
}
