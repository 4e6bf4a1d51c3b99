package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-booking/internal/handler"
)

// RegisterCustomer registers the public booking flow under /v1: holds,
// availability and phone verification.  sendLimit guards code sending
// per client on top of the per-phone gates of the OTP engine.
func RegisterCustomer(e *echo.Echo, h *handler.HoldHandler, o *handler.OtpHandler, sendLimit echo.MiddlewareFunc) {
	g := e.Group("/v1")

	g.POST("/hold/create", h.Create)
	g.POST("/hold/cancel", h.Cancel)
	g.GET("/hold/status/:holdId", h.Status)
	g.GET("/salons/:salonId/services/:serviceId/taken", h.Taken)

	g.POST("/otp/send-otp", o.Send, sendLimit)
	g.POST("/otp/verify-otp", o.Verify)
}
