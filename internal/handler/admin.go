package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-booking/internal/service"
)

// AdminHandler exposes operator actions.  Routes using it sit behind
// JWTAuth and RequireRole("OWNER").
type AdminHandler struct {
	Sweeper *service.Sweeper
}

// NewAdminHandler returns an AdminHandler running sweeps on s.
func NewAdminHandler(s *service.Sweeper) *AdminHandler {
	return &AdminHandler{Sweeper: s}
}

// Cleanup handles POST /v1/admin/cleanup by running one sweep
// synchronously.  Step failures are reported in the body; the status is
// 200 unless every step failed.
func (h *AdminHandler) Cleanup(c echo.Context) error {
	rep := h.Sweeper.RunNow(c.Request().Context())
	status := http.StatusOK
	if rep.AllFailed() {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, echo.Map{"success": status == http.StatusOK, "report": rep})
}
