// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/salon-booking/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", h.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterManage registers the management link endpoints.  The token in
// the path is the only credential.
func RegisterManage(e *echo.Echo, m *handler.ManageHandler) {
	g := e.Group("/v1/manage")
	g.GET("/:token", m.Get)
	g.POST("/:token/cancel", m.Cancel)
}
