package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "data/salon.db", cfg.SQLitePath)
	assert.Equal(t, "s3cret", cfg.ManageTokenSecret, "manage secret falls back to JWT_SECRET")
	assert.Equal(t, "direct", cfg.NotifyMode)
	assert.Equal(t, 7*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Booking.ManageTokenTTL)
	assert.Equal(t, "972", cfg.Booking.DefaultCountryCode)
	assert.Equal(t, 45*time.Second, cfg.OTP.Cooldown)
	assert.Equal(t, 5, cfg.OTP.MaxPerWindow)
	assert.Equal(t, 3*time.Hour, cfg.OTP.Window)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.Capacity)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "log", cfg.SMS.Provider)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MANAGE_TOKEN_SECRET", "other")
	t.Setenv("DEFAULT_COUNTRY_CODE", "+44")
	t.Setenv("HOLD_TTL", "10m")
	t.Setenv("OTP_COOLDOWN", "1m")
	t.Setenv("NOTIFY_MODE", "AMQP")
	t.Setenv("RABBITMQ_URL", "amqp://broker:5672/")
	t.Setenv("PUBLIC_BASE_URL", "https://book.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.ManageTokenSecret)
	assert.Equal(t, "44", cfg.Booking.DefaultCountryCode)
	assert.Equal(t, 10*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, time.Minute, cfg.OTP.Cooldown)
	assert.Equal(t, "amqp", cfg.NotifyMode)
	assert.Equal(t, "amqp://broker:5672/", cfg.AMQPURL)
	assert.Equal(t, "https://book.example", cfg.PublicBaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("mysql needs connection settings", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("DB_USER", "")
		t.Setenv("DB_HOST", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_USER")
		assert.Contains(t, err.Error(), "DB_HOST")
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		_, err := Load()
		assert.ErrorContains(t, err, "DB_DRIVER")
	})
	t.Run("unknown notify mode", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite3")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("NOTIFY_MODE", "pigeon")
		_, err := Load()
		assert.ErrorContains(t, err, "NOTIFY_MODE")
	})
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite3")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
}
