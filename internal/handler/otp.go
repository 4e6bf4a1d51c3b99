package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-booking/internal/service"
)

// OtpHandler serves phone verification.  A verify request that names a
// hold also confirms the booking with the verified number.
type OtpHandler struct {
	Otp   *service.OtpService
	Holds *service.HoldService
}

// NewOtpHandler panics on a nil service.
func NewOtpHandler(otp *service.OtpService, holds *service.HoldService) *OtpHandler {
	if otp == nil || holds == nil {
		panic("nil service passed to NewOtpHandler")
	}
	return &OtpHandler{Otp: otp, Holds: holds}
}

// Send handles POST /v1/otp/send-otp.  Cooldown and volume rejections
// answer 429.
func (h *OtpHandler) Send(c echo.Context) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return badRequest(c, "phone is required")
	}
	res := h.Otp.SendOtp(c.Request().Context(), req.Phone)
	if res.Success {
		res.Message = "code sent"
	}
	return c.JSON(statusOf(res.Outcome), res)
}

type verifyRequest struct {
	Phone        string `json:"phone"`
	Code         string `json:"code"`
	HoldID       string `json:"holdId"`
	CustomerName string `json:"customerName"`
}

// Verify handles POST /v1/otp/verify-otp.
func (h *OtpHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Code) == "" {
		return badRequest(c, "phone and code are required")
	}
	ctx := c.Request().Context()
	res := h.Otp.VerifyOtp(ctx, req.Phone, strings.TrimSpace(req.Code))
	if !res.Success || strings.TrimSpace(req.HoldID) == "" {
		if res.Success {
			res.Message = "phone verified"
		}
		return c.JSON(statusOf(res.Outcome), res)
	}

	booked := h.Holds.ConfirmBooking(ctx, req.HoldID, req.CustomerName, res.Phone)
	return c.JSON(statusOf(booked.Outcome), booked)
}
