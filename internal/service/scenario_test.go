package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/queue"
)

// TestBookingFlow walks a customer from picking a slot to managing the
// booking through the link in the confirmation text.
func TestBookingFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	hold := e.holds.CreateHold(ctx, e.holdInput("2025-01-10", "10:00"))
	require.True(t, hold.Success, hold.Message)

	dup := e.holds.CreateHold(ctx, e.holdInput("2025-01-10", "10:00"))
	assert.False(t, dup.Success)
	assert.Equal(t, MsgSlotTaken, dup.Message)

	require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
	code := e.gateway.lastCode(t)

	assert.False(t, e.otp.VerifyOtp(ctx, rawPhone, wrong(code)).Success)
	row, err := e.repos.Otp.FindActive(ctx, e164, e.clock.Now())
	require.NoError(t, err)
	assert.False(t, row.IsUsed)

	verified := e.otp.VerifyOtp(ctx, rawPhone, code)
	require.True(t, verified.Success, verified.Message)

	res := e.holds.ConfirmBooking(ctx, hold.HoldID, "Dana", verified.Phone)
	require.True(t, res.Success, res.Message)
	assert.True(t, strings.HasPrefix(res.ManageURL, testBaseURL+"/manage/"))

	h, err := e.repos.Holds.GetByID(ctx, hold.HoldID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldConfirmed, h.Status)
	b, err := e.repos.Bookings.GetByID(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	sent := e.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, queue.KindBookingConfirmed, sent[0].Kind)
	assert.Contains(t, sent[0].Text, res.ManageURL)

	taken := e.holds.TakenTimes(ctx, e.fx.SalonID, e.fx.ServiceID, "2025-01-10")
	assert.Equal(t, []string{"10:00"}, taken.Times)

	token := strings.TrimPrefix(res.ManageURL, testBaseURL+"/manage/")
	view := e.manage.ResolveManageToken(ctx, token)
	require.True(t, view.Success, view.Message)
	require.True(t, e.manage.CancelBooking(ctx, view.Booking.ID, view.TokenID).Success)

	taken = e.holds.TakenTimes(ctx, e.fx.SalonID, e.fx.ServiceID, "2025-01-10")
	assert.Empty(t, taken.Times)
}
