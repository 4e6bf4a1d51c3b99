package service

import (
	"time"

	"github.com/iliyamo/salon-booking/internal/clock"
	"github.com/iliyamo/salon-booking/internal/config"
)

type options struct {
	clock       clock.Clock
	holdTTL     time.Duration
	manageTTL   time.Duration
	countryCode string
	otp         config.OTPConfig
}

func defaultOptions() options {
	return options{
		clock:       clock.NewSystem(),
		holdTTL:     7 * time.Minute,
		manageTTL:   30 * 24 * time.Hour,
		countryCode: "972",
		otp: config.OTPConfig{
			TTL:          5 * time.Minute,
			Cooldown:     45 * time.Second,
			Window:       3 * time.Hour,
			MaxPerWindow: 5,
			MaxAttempts:  5,
			BcryptCost:   10,
		},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option customizes a service.  Options that do not apply to a service
// are ignored by it.
type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithHoldTTL overrides how long a new hold reserves its slot.
func WithHoldTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.holdTTL = d
		}
	}
}

// WithManageTokenTTL overrides the lifetime of management links.
func WithManageTokenTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.manageTTL = d
		}
	}
}

// WithCountryCode sets the code used for national numbers ("972").
func WithCountryCode(cc string) Option {
	return func(o *options) {
		if cc != "" {
			o.countryCode = cc
		}
	}
}

// WithOTPConfig overrides code lifetime, gates and hashing cost.  Zero
// fields keep their defaults.
func WithOTPConfig(c config.OTPConfig) Option {
	return func(o *options) {
		if c.TTL > 0 {
			o.otp.TTL = c.TTL
		}
		if c.Cooldown > 0 {
			o.otp.Cooldown = c.Cooldown
		}
		if c.Window > 0 {
			o.otp.Window = c.Window
		}
		if c.MaxPerWindow > 0 {
			o.otp.MaxPerWindow = c.MaxPerWindow
		}
		if c.MaxAttempts > 0 {
			o.otp.MaxAttempts = c.MaxAttempts
		}
		if c.BcryptCost > 0 {
			o.otp.BcryptCost = c.BcryptCost
		}
	}
}
