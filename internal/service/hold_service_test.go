package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/queue"
)

func TestHoldService_CreateHold(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves the slot for seven minutes", func(t *testing.T) {
		e := newEnv(t)
		id := e.mustHold(t, "2025-01-10", "10:00")

		h, err := e.repos.Holds.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.HoldReserved, h.Status)
		assert.True(t, start.Add(7*time.Minute).Equal(h.ExpiresAt))
	})

	t.Run("second hold on an active slot is rejected", func(t *testing.T) {
		e := newEnv(t)
		e.mustHold(t, "2025-01-10", "10:00")

		res := e.holds.CreateHold(ctx, e.holdInput("2025-01-10", "10:00"))
		assert.False(t, res.Success)
		assert.Equal(t, MsgSlotTaken, res.Message)
		assert.Equal(t, OutcomeConflict, res.Outcome)

		// other times and dates stay free
		e.mustHold(t, "2025-01-10", "10:30")
		e.mustHold(t, "2025-01-11", "10:00")
	})

	t.Run("slot frees up after cancellation", func(t *testing.T) {
		e := newEnv(t)
		id := e.mustHold(t, "2025-01-10", "10:00")
		require.True(t, e.holds.CancelHold(ctx, id).Success)
		e.mustHold(t, "2025-01-10", "10:00")
	})

	t.Run("slot frees up after expiry even before the sweeper runs", func(t *testing.T) {
		e := newEnv(t)
		e.mustHold(t, "2025-01-10", "10:00")
		e.clock.Advance(7 * time.Minute)
		e.mustHold(t, "2025-01-10", "10:00")
	})

	t.Run("slot stays taken after confirmation", func(t *testing.T) {
		e := newEnv(t)
		id := e.mustHold(t, "2025-01-10", "10:00")
		require.True(t, e.holds.ConfirmBooking(ctx, id, "Dana", "0501234567").Success)

		e.clock.Advance(time.Hour)
		res := e.holds.CreateHold(ctx, e.holdInput("2025-01-10", "10:00"))
		assert.Equal(t, MsgSlotTaken, res.Message)
	})

	t.Run("validation", func(t *testing.T) {
		e := newEnv(t)
		cases := []struct {
			name string
			in   CreateHoldInput
		}{
			{"bad date", e.holdInput("10/01/2025", "10:00")},
			{"bad time", e.holdInput("2025-01-10", "9:00")},
			{"out of range time", e.holdInput("2025-01-10", "25:00")},
			{"missing salon", CreateHoldInput{ServiceID: e.fx.ServiceID, Date: "2025-01-10", Time: "10:00"}},
			{"inactive service", CreateHoldInput{SalonID: e.fx.SalonID, ServiceID: e.fx.InactiveServiceID, Date: "2025-01-10", Time: "10:00"}},
			{"service of another salon", CreateHoldInput{SalonID: e.fx.OtherSalonID, ServiceID: e.fx.ServiceID, Date: "2025-01-10", Time: "10:00"}},
			{"unknown service", CreateHoldInput{SalonID: e.fx.SalonID, ServiceID: 999, Date: "2025-01-10", Time: "10:00"}},
			{"bad phone", CreateHoldInput{SalonID: e.fx.SalonID, ServiceID: e.fx.ServiceID, Date: "2025-01-10", Time: "10:00", CustomerPhone: "12"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				res := e.holds.CreateHold(ctx, tc.in)
				assert.False(t, res.Success)
				assert.Equal(t, OutcomeInvalid, res.Outcome)
				assert.Empty(t, res.HoldID)
			})
		}
	})

	t.Run("optional customer details are stored normalized", func(t *testing.T) {
		e := newEnv(t)
		in := e.holdInput("2025-01-10", "12:00")
		in.CustomerName, in.CustomerPhone = "Dana", "050-123-4567"
		res := e.holds.CreateHold(ctx, in)
		require.True(t, res.Success)

		h, err := e.repos.Holds.GetByID(ctx, res.HoldID)
		require.NoError(t, err)
		require.NotNil(t, h.CustomerPhone)
		assert.Equal(t, "+972501234567", *h.CustomerPhone)
	})
}

func TestHoldService_ConcurrentCreateHold(t *testing.T) {
	e := newEnv(t)
	const workers = 10

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		taken   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := e.holds.CreateHold(context.Background(), e.holdInput("2025-02-01", "09:00"))
			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				winners = append(winners, res.HoldID)
			} else if res.Message == MsgSlotTaken {
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, winners, 1)
	assert.Equal(t, workers-1, taken)
}

func TestHoldService_ConfirmBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes the hold", func(t *testing.T) {
		e := newEnv(t)
		id := e.mustHold(t, "2025-01-10", "10:00")

		res := e.holds.ConfirmBooking(ctx, id, "Dana Levi", "050 123 4567")
		require.True(t, res.Success, res.Message)
		assert.NotZero(t, res.BookingID)
		require.True(t, strings.HasPrefix(res.ManageURL, testBaseURL+"/manage/"))

		h, err := e.repos.Holds.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.HoldConfirmed, h.Status)

		d, err := e.repos.Bookings.GetDetail(ctx, res.BookingID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, d.Status)
		assert.Equal(t, e.fx.ServicePriceCents, d.TotalPriceCents)
		assert.Equal(t, "+972501234567", d.CustomerPhone)
		assert.Equal(t, "Dana Levi", d.CustomerName)
		assert.Equal(t, "2025-01-10", d.Date)
		assert.Equal(t, "10:00", d.Time)

		tok, err := e.repos.Tokens.GetByToken(ctx, strings.TrimPrefix(res.ManageURL, testBaseURL+"/manage/"))
		require.NoError(t, err)
		assert.Equal(t, res.BookingID, tok.BookingID)
		assert.True(t, start.Add(30*24*time.Hour).Equal(tok.ExpiresAt))

		sent := e.notifier.all()
		require.Len(t, sent, 1)
		assert.Equal(t, queue.KindBookingConfirmed, sent[0].Kind)
		assert.Equal(t, "+972501234567", sent[0].Phone)
		assert.Contains(t, sent[0].Text, res.ManageURL)
	})

	t.Run("reuses the customer and updates the name", func(t *testing.T) {
		e := newEnv(t)
		first := e.holds.ConfirmBooking(ctx, e.mustHold(t, "2025-01-10", "10:00"), "Dana", "0501234567")
		second := e.holds.ConfirmBooking(ctx, e.mustHold(t, "2025-01-10", "11:00"), "Dana Levi", "+972501234567")
		require.True(t, first.Success)
		require.True(t, second.Success)

		a, err := e.repos.Bookings.GetByID(ctx, first.BookingID)
		require.NoError(t, err)
		b, err := e.repos.Bookings.GetByID(ctx, second.BookingID)
		require.NoError(t, err)
		assert.Equal(t, a.CustomerID, b.CustomerID)

		c, err := e.repos.Customers.GetByPhone(ctx, e.fx.SalonID, "+972501234567")
		require.NoError(t, err)
		assert.Equal(t, "Dana Levi", c.Name)
	})

	t.Run("distinct failure messages", func(t *testing.T) {
		e := newEnv(t)

		res := e.holds.ConfirmBooking(ctx, "00000000-0000-0000-0000-000000000000", "Dana", "0501234567")
		assert.Equal(t, MsgHoldNotFound, res.Message)

		cancelled := e.mustHold(t, "2025-01-10", "10:00")
		require.True(t, e.holds.CancelHold(ctx, cancelled).Success)
		res = e.holds.ConfirmBooking(ctx, cancelled, "Dana", "0501234567")
		assert.Equal(t, MsgHoldNotActive, res.Message)

		lapsed := e.mustHold(t, "2025-01-10", "11:00")
		e.clock.Advance(7 * time.Minute)
		res = e.holds.ConfirmBooking(ctx, lapsed, "Dana", "0501234567")
		assert.Equal(t, MsgHoldExpired, res.Message)
		assert.Equal(t, OutcomeConflict, res.Outcome)

		h, err := e.repos.Holds.GetByID(ctx, lapsed)
		require.NoError(t, err)
		assert.Equal(t, model.HoldReserved, h.Status, "failed confirmation must not mutate the hold")
		assert.Empty(t, e.notifier.all())
	})

	t.Run("confirming twice fails", func(t *testing.T) {
		e := newEnv(t)
		id := e.mustHold(t, "2025-01-10", "10:00")
		require.True(t, e.holds.ConfirmBooking(ctx, id, "Dana", "0501234567").Success)
		res := e.holds.ConfirmBooking(ctx, id, "Dana", "0501234567")
		assert.Equal(t, MsgHoldNotActive, res.Message)
	})

	t.Run("notification failure does not fail the booking", func(t *testing.T) {
		e := newEnv(t)
		e.notifier.err = errors.New("sms provider down")
		res := e.holds.ConfirmBooking(ctx, e.mustHold(t, "2025-01-10", "10:00"), "Dana", "0501234567")
		assert.True(t, res.Success)
		assert.NotEmpty(t, res.ManageURL)
	})

	t.Run("name falls back to the hold and is otherwise required", func(t *testing.T) {
		e := newEnv(t)
		in := e.holdInput("2025-01-10", "12:00")
		in.CustomerName = "Noa"
		held := e.holds.CreateHold(ctx, in)
		require.True(t, held.Success)
		assert.True(t, e.holds.ConfirmBooking(ctx, held.HoldID, "", "0501234567").Success)

		res := e.holds.ConfirmBooking(ctx, e.mustHold(t, "2025-01-10", "13:00"), " ", "0501234567")
		assert.Equal(t, OutcomeInvalid, res.Outcome)
	})
}

func TestHoldService_CancelHold(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	assert.Equal(t, MsgHoldNotFound, e.holds.CancelHold(ctx, "missing").Message)
	assert.Equal(t, OutcomeInvalid, e.holds.CancelHold(ctx, "").Outcome)

	id := e.mustHold(t, "2025-01-10", "10:00")
	res := e.holds.CancelHold(ctx, id)
	assert.True(t, res.Success)

	res = e.holds.CancelHold(ctx, id)
	assert.False(t, res.Success)
	assert.Equal(t, MsgHoldNotActive, res.Message)

	confirmed := e.mustHold(t, "2025-01-10", "11:00")
	require.True(t, e.holds.ConfirmBooking(ctx, confirmed, "Dana", "0501234567").Success)
	assert.Equal(t, MsgHoldNotActive, e.holds.CancelHold(ctx, confirmed).Message)

	h, err := e.repos.Holds.GetByID(ctx, confirmed)
	require.NoError(t, err)
	assert.Equal(t, model.HoldConfirmed, h.Status)
}

func TestHoldService_StatusAndTakenTimes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	st := e.holds.GetHoldStatus(ctx, "missing")
	assert.False(t, st.Exists)
	assert.Nil(t, st.ExpiresAt)

	id := e.mustHold(t, "2025-01-10", "10:00")
	st = e.holds.GetHoldStatus(ctx, id)
	assert.True(t, st.Exists)
	assert.Equal(t, "RESERVED", st.Status)
	require.NotNil(t, st.ExpiresAt)
	assert.True(t, start.Add(7*time.Minute).Equal(*st.ExpiresAt))

	confirmed := e.mustHold(t, "2025-01-10", "09:00")
	require.True(t, e.holds.ConfirmBooking(ctx, confirmed, "Dana", "0501234567").Success)
	e.mustHold(t, "2025-01-11", "09:00")

	taken := e.holds.TakenTimes(ctx, e.fx.SalonID, e.fx.ServiceID, "2025-01-10")
	assert.Equal(t, OutcomeOK, taken.Outcome)
	assert.Equal(t, []string{"09:00", "10:00"}, taken.Times)

	e.clock.Advance(8 * time.Minute)
	taken = e.holds.TakenTimes(ctx, e.fx.SalonID, e.fx.ServiceID, "2025-01-10")
	assert.Equal(t, []string{"09:00"}, taken.Times)

	assert.Equal(t, OutcomeInvalid, e.holds.TakenTimes(ctx, e.fx.SalonID, e.fx.ServiceID, "tomorrow").Outcome)
}
