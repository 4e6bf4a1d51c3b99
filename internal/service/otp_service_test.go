package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawPhone = "0501234567"
const e164 = "+972501234567"

func TestOtpService_SendOtp(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a hashed code and texts it", func(t *testing.T) {
		e := newEnv(t)
		res := e.otp.SendOtp(ctx, rawPhone)
		require.True(t, res.Success, res.Message)
		assert.Equal(t, e164, res.Phone)

		require.Len(t, e.gateway.msgs, 1)
		assert.Equal(t, e164, e.gateway.msgs[0].To)
		code := e.gateway.lastCode(t)

		row, err := e.repos.Otp.FindActive(ctx, e164, start)
		require.NoError(t, err)
		assert.NotEqual(t, code, row.CodeHash)
		assert.Equal(t, 5, row.MaxAttempts)
		assert.True(t, start.Add(5*time.Minute).Equal(row.ExpiresAt))
	})

	t.Run("cooldown reports the remaining seconds", func(t *testing.T) {
		e := newEnv(t)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)

		res := e.otp.SendOtp(ctx, rawPhone)
		assert.False(t, res.Success)
		assert.Equal(t, OutcomeRateLimited, res.Outcome)
		assert.Equal(t, 45, res.RetryAfter)

		e.clock.Advance(10 * time.Second)
		res = e.otp.SendOtp(ctx, "+972 50 123 4567")
		assert.Equal(t, MsgOtpCooldown, res.Message)
		assert.Equal(t, 35, res.RetryAfter)

		e.clock.Advance(35 * time.Second)
		res = e.otp.SendOtp(ctx, rawPhone)
		assert.Equal(t, 1, res.RetryAfter, "the boundary second still counts as cooling down")

		e.clock.Advance(time.Second)
		assert.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
	})

	t.Run("volume cap over the window", func(t *testing.T) {
		e := newEnv(t)
		for i := 0; i < 5; i++ {
			require.True(t, e.otp.SendOtp(ctx, rawPhone).Success, "send %d", i+1)
			e.clock.Advance(46 * time.Second)
		}
		res := e.otp.SendOtp(ctx, rawPhone)
		assert.False(t, res.Success)
		assert.Equal(t, MsgOtpTryLater, res.Message)
		assert.Zero(t, res.RetryAfter)

		// other numbers are unaffected
		assert.True(t, e.otp.SendOtp(ctx, "0529876543").Success)

		e.clock.Set(start.Add(3*time.Hour + time.Second))
		assert.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
	})

	t.Run("gateway failure fails the call but keeps the code", func(t *testing.T) {
		e := newEnv(t)
		e.gateway.err = errors.New("provider down")
		res := e.otp.SendOtp(ctx, rawPhone)
		assert.False(t, res.Success)
		assert.Equal(t, OutcomeInternal, res.Outcome)

		_, err := e.repos.Otp.FindActive(ctx, e164, start)
		require.NoError(t, err)
		n, err := e.repos.Otp.CountSends(ctx, e164, start.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n, "the failed send still counts against the gates")
	})

	t.Run("volume cap holds while the sweeper cleans codes", func(t *testing.T) {
		e := newEnv(t)
		for i := 0; i < 5; i++ {
			require.True(t, e.otp.SendOtp(ctx, rawPhone).Success, "send %d", i+1)
			e.clock.Advance(46 * time.Second)
			rep := e.sweeper.RunNow(ctx)
			require.Empty(t, rep.Errors)
		}
		n, err := e.repos.Otp.CountSends(ctx, e164, start)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		res := e.otp.SendOtp(ctx, rawPhone)
		assert.False(t, res.Success)
		assert.Equal(t, MsgOtpTryLater, res.Message)
		assert.Equal(t, OutcomeRateLimited, res.Outcome)

		// once the window has passed the sweeper drops the old sends
		e.clock.Set(start.Add(3*time.Hour + 4*time.Minute))
		rep := e.sweeper.RunNow(ctx)
		assert.EqualValues(t, 5, rep.OtpSendsPruned)
		assert.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
	})

	t.Run("invalid phone", func(t *testing.T) {
		e := newEnv(t)
		res := e.otp.SendOtp(ctx, "abc")
		assert.Equal(t, OutcomeInvalid, res.Outcome)
		assert.Empty(t, e.gateway.msgs)
	})
}

func TestOtpService_VerifyOtp(t *testing.T) {
	ctx := context.Background()

	t.Run("a code verifies exactly once", func(t *testing.T) {
		e := newEnv(t)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
		code := e.gateway.lastCode(t)

		res := e.otp.VerifyOtp(ctx, rawPhone, code)
		require.True(t, res.Success, res.Message)
		assert.Equal(t, e164, res.Phone)

		res = e.otp.VerifyOtp(ctx, rawPhone, code)
		assert.False(t, res.Success)
		assert.Equal(t, MsgInvalidCode, res.Message)
	})

	t.Run("wrong code counts an attempt and leaves the code usable", func(t *testing.T) {
		e := newEnv(t)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
		code := e.gateway.lastCode(t)

		res := e.otp.VerifyOtp(ctx, rawPhone, wrong(code))
		assert.False(t, res.Success)
		assert.Equal(t, MsgInvalidCode, res.Message)

		row, err := e.repos.Otp.FindActive(ctx, e164, e.clock.Now())
		require.NoError(t, err)
		assert.False(t, row.IsUsed)
		assert.Equal(t, 1, row.Attempts)

		assert.True(t, e.otp.VerifyOtp(ctx, rawPhone, code).Success)
	})

	t.Run("attempt budget is enforced", func(t *testing.T) {
		e := newEnv(t)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
		code := e.gateway.lastCode(t)

		for i := 0; i < 5; i++ {
			assert.Equal(t, MsgInvalidCode, e.otp.VerifyOtp(ctx, rawPhone, wrong(code)).Message)
		}
		res := e.otp.VerifyOtp(ctx, rawPhone, code)
		assert.False(t, res.Success)
		assert.Equal(t, MsgTooManyAttempts, res.Message)
	})

	t.Run("expired code", func(t *testing.T) {
		e := newEnv(t)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
		code := e.gateway.lastCode(t)
		e.clock.Advance(5 * time.Minute)
		assert.Equal(t, MsgInvalidCode, e.otp.VerifyOtp(ctx, rawPhone, code).Message)
	})

	t.Run("a new code retires the previous one", func(t *testing.T) {
		e := newEnv(t)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
		first := e.gateway.lastCode(t)
		e.clock.Advance(time.Minute)
		require.True(t, e.otp.SendOtp(ctx, rawPhone).Success)
		second := e.gateway.lastCode(t)

		if first != second {
			assert.False(t, e.otp.VerifyOtp(ctx, rawPhone, first).Success)
		}
		assert.True(t, e.otp.VerifyOtp(ctx, rawPhone, second).Success)
	})

	t.Run("no code issued", func(t *testing.T) {
		e := newEnv(t)
		res := e.otp.VerifyOtp(ctx, rawPhone, "123456")
		assert.Equal(t, MsgInvalidCode, res.Message)
		assert.Equal(t, OutcomeConflict, res.Outcome)
	})
}

// wrong returns a six digit code that differs from code.
func wrong(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
