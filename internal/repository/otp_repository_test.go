package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/testutil"
)

func newCode(phone string, createdAt time.Time) *model.OtpCode {
	return &model.OtpCode{
		ID:          uuid.NewString(),
		Phone:       phone,
		CodeHash:    "hash",
		ExpiresAt:   createdAt.Add(5 * time.Minute),
		MaxAttempts: 5,
		CreatedAt:   createdAt,
	}
}

func TestOtpRepo(t *testing.T) {
	db, _ := testutil.NewDB(t)
	repo := NewOtpRepo(db)
	ctx := context.Background()
	const phone = "+972501234567"

	old := newCode(phone, base.Add(-2*time.Hour))
	recent := newCode(phone, base.Add(-30*time.Second))
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, recent))
	require.NoError(t, repo.Create(ctx, newCode("+972509999999", base)))

	t.Run("find active returns newest unexpired code", func(t *testing.T) {
		c, err := repo.FindActive(ctx, phone, base)
		require.NoError(t, err)
		assert.Equal(t, recent.ID, c.ID)
		assert.Equal(t, 5, c.MaxAttempts)

		_, err = repo.FindActive(ctx, phone, base.Add(5*time.Minute))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("attempts and single use", func(t *testing.T) {
		require.NoError(t, repo.IncrementAttempts(ctx, recent.ID))
		require.NoError(t, repo.IncrementAttempts(ctx, recent.ID))
		c, err := repo.FindActive(ctx, phone, base)
		require.NoError(t, err)
		assert.Equal(t, 2, c.Attempts)

		require.NoError(t, repo.MarkUsed(ctx, recent.ID))
		assert.ErrorIs(t, repo.MarkUsed(ctx, recent.ID), ErrStaleState)
		_, err = repo.FindActive(ctx, phone, base)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalidate unused and delete", func(t *testing.T) {
		fresh := newCode(phone, base)
		require.NoError(t, repo.Create(ctx, fresh))
		n, err := repo.InvalidateUnused(ctx, phone)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n) // old and fresh; recent is already used

		n, err = repo.DeleteExpiredOrUsed(ctx, base)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		_, err = repo.FindActive(ctx, "+972509999999", base)
		require.NoError(t, err, "codes of other phones are untouched")
	})
}

func TestOtpRepo_SendLog(t *testing.T) {
	db, _ := testutil.NewDB(t)
	repo := NewOtpRepo(db)
	ctx := context.Background()
	const phone = "+972501234567"

	require.NoError(t, repo.LogSend(ctx, phone, base.Add(-2*time.Hour)))
	require.NoError(t, repo.LogSend(ctx, phone, base.Add(-30*time.Second)))
	require.NoError(t, repo.LogSend(ctx, "+972509999999", base))

	t.Run("latest send honours the window", func(t *testing.T) {
		at, ok, err := repo.LatestSend(ctx, phone, base.Add(-45*time.Second))
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, base.Add(-30*time.Second).Equal(at))

		_, ok, err = repo.LatestSend(ctx, phone, base.Add(-10*time.Second))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("count sends", func(t *testing.T) {
		cnt, err := repo.CountSends(ctx, phone, base.Add(-3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, cnt)
		cnt, err = repo.CountSends(ctx, phone, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
	})

	t.Run("sends survive code cleanup and are pruned by age", func(t *testing.T) {
		_, err := repo.DeleteExpiredOrUsed(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		cnt, err := repo.CountSends(ctx, phone, base.Add(-3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, cnt)

		n, err := repo.PruneSends(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		n, err = repo.PruneSends(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)

		cnt, err = repo.CountSends(ctx, phone, base.Add(-3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
	})
}
