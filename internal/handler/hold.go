package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-booking/internal/service"
)

// HoldHandler serves slot holds and availability.
type HoldHandler struct {
	Holds *service.HoldService
}

// NewHoldHandler panics on a nil service, like the other constructors.
func NewHoldHandler(holds *service.HoldService) *HoldHandler {
	if holds == nil {
		panic("nil hold service passed to NewHoldHandler")
	}
	return &HoldHandler{Holds: holds}
}

type createHoldRequest struct {
	SalonID       uint64 `json:"salonId"`
	ServiceID     uint64 `json:"serviceId"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

// Create handles POST /v1/hold/create.  A taken slot answers 400 with
// success=false.
func (h *HoldHandler) Create(c echo.Context) error {
	var req createHoldRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.SalonID == 0 || req.ServiceID == 0 {
		return badRequest(c, "salonId and serviceId are required")
	}
	res := h.Holds.CreateHold(c.Request().Context(), service.CreateHoldInput{
		SalonID:       req.SalonID,
		ServiceID:     req.ServiceID,
		Date:          strings.TrimSpace(req.Date),
		Time:          strings.TrimSpace(req.Time),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	return c.JSON(statusOf(res.Outcome), res)
}

// Cancel handles POST /v1/hold/cancel.
func (h *HoldHandler) Cancel(c echo.Context) error {
	var req struct {
		HoldID string `json:"holdId"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.HoldID) == "" {
		return badRequest(c, "holdId is required")
	}
	res := h.Holds.CancelHold(c.Request().Context(), req.HoldID)
	return c.JSON(statusOf(res.Outcome), res)
}

// Status handles GET /v1/hold/status/:holdId.  An unknown id is not an
// error; it answers {"exists": false}.
func (h *HoldHandler) Status(c echo.Context) error {
	res := h.Holds.GetHoldStatus(c.Request().Context(), c.Param("holdId"))
	return c.JSON(statusOf(res.Outcome), res)
}

// Taken handles GET /v1/salons/:salonId/services/:serviceId/taken?date=.
func (h *HoldHandler) Taken(c echo.Context) error {
	salonID, err := strconv.ParseUint(c.Param("salonId"), 10, 64)
	if err != nil || salonID == 0 {
		return badRequest(c, "invalid salon id")
	}
	serviceID, err := strconv.ParseUint(c.Param("serviceId"), 10, 64)
	if err != nil || serviceID == 0 {
		return badRequest(c, "invalid service id")
	}
	res := h.Holds.TakenTimes(c.Request().Context(), salonID, serviceID, c.QueryParam("date"))
	return c.JSON(statusOf(res.Outcome), res)
}
