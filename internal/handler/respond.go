// Package handler exposes the booking services over HTTP.  Handlers only
// bind and validate transport input; every rule lives in the service
// layer, whose Outcome decides the status code.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-booking/internal/service"
)

// statusOf maps a service outcome to an HTTP status.
func statusOf(o service.Outcome) int {
	switch o {
	case service.OutcomeOK:
		return http.StatusOK
	case service.OutcomeInvalid, service.OutcomeConflict:
		return http.StatusBadRequest
	case service.OutcomeUnauthorized:
		return http.StatusUnauthorized
	case service.OutcomeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": msg})
}
