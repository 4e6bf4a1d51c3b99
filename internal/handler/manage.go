package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-booking/internal/service"
)

// ManageHandler serves the booking management link.
type ManageHandler struct {
	Manage *service.ManageService
}

// NewManageHandler panics on a nil service.
func NewManageHandler(m *service.ManageService) *ManageHandler {
	if m == nil {
		panic("nil manage service passed to NewManageHandler")
	}
	return &ManageHandler{Manage: m}
}

// Get handles GET /v1/manage/:token.
func (h *ManageHandler) Get(c echo.Context) error {
	res := h.Manage.ResolveManageToken(c.Request().Context(), c.Param("token"))
	return c.JSON(statusOf(res.Outcome), res)
}

// Cancel handles POST /v1/manage/:token/cancel.  The token is resolved
// again so a link retired by a concurrent cancel is refused.
func (h *ManageHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	resolved := h.Manage.ResolveManageToken(ctx, c.Param("token"))
	if !resolved.Success {
		return c.JSON(statusOf(resolved.Outcome), resolved)
	}
	res := h.Manage.CancelBooking(ctx, resolved.Booking.ID, resolved.TokenID)
	return c.JSON(statusOf(res.Outcome), res)
}
