package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/repository"
)

// Sweep steps, also used as metric labels.
const (
	StepOtpCodes     = "otp_codes"
	StepOtpSends     = "otp_sends"
	StepHolds        = "holds"
	StepManageTokens = "manage_tokens"
)

var sweepSteps = []string{StepOtpCodes, StepOtpSends, StepHolds, StepManageTokens}

// SweepReport summarizes one sweep.  Errors maps a failed step to its
// error text.
type SweepReport struct {
	RanAt           time.Time         `json:"ranAt"`
	OtpCodesDeleted int64             `json:"otpCodesDeleted"`
	OtpSendsPruned  int64             `json:"otpSendsPruned"`
	HoldsExpired    int64             `json:"holdsExpired"`
	ClaimsReleased  int64             `json:"claimsReleased"`
	TokensDeleted   int64             `json:"tokensDeleted"`
	Errors          map[string]string `json:"errors,omitempty"`
}

// AllFailed reports whether every sweep step failed.
func (r SweepReport) AllFailed() bool {
	return len(r.Errors) == len(sweepSteps)
}

// Sweeper periodically removes spent codes and send records older than
// the OTP volume window, expires lapsed holds and deletes expired
// management tokens.  Steps are independent: a failing
// step is logged and the next one still runs.
type Sweeper struct {
	db     *sql.DB
	repos  *repository.Set
	logger zerolog.Logger
	opts   options

	mu      sync.Mutex // guards running, stopCh, done
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	runMu   sync.Mutex // serializes sweeps
}

// NewSweeper returns a stopped sweeper; call Start or RunNow.
func NewSweeper(db *sql.DB, repos *repository.Set, logger zerolog.Logger, opts ...Option) *Sweeper {
	return &Sweeper{
		db:     db,
		repos:  repos,
		logger: logger.With().Str("component", "sweeper").Logger(),
		opts:   buildOptions(opts),
	}
}

// Start runs one sweep immediately and then one per interval in a
// background goroutine until Stop is called or ctx is cancelled.  Calling
// Start on a running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	s.logger.Info().Dur("interval", interval).Msg("sweeper started")
	go func() {
		defer close(done)
		s.RunNow(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("sweeper stopped by context")
				return
			case <-stopCh:
				s.logger.Info().Msg("sweeper stopped")
				return
			case <-ticker.C:
				s.RunNow(ctx)
			}
		}
	}()
}

// Stop ends the background loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()
	<-done
}

// IsRunning reports whether the background loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow performs one sweep and returns its report.  Running it again
// with nothing new to clean changes nothing.
func (s *Sweeper) RunNow(ctx context.Context) SweepReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.opts.clock.Now()
	rep := SweepReport{RanAt: now}
	failed := func(step string, err error) {
		if rep.Errors == nil {
			rep.Errors = map[string]string{}
		}
		rep.Errors[step] = err.Error()
		metrics.IncSweepFailure(step)
		s.logger.Error().Err(err).Str("step", step).Msg("sweep step failed")
	}

	if n, err := s.repos.Otp.DeleteExpiredOrUsed(ctx, now); err != nil {
		failed(StepOtpCodes, err)
	} else {
		rep.OtpCodesDeleted = n
		metrics.AddSweepRows(StepOtpCodes, n)
	}
	// the send log is kept for the whole volume window
	if n, err := s.repos.Otp.PruneSends(ctx, now.Add(-s.opts.otp.Window)); err != nil {
		failed(StepOtpSends, err)
	} else {
		rep.OtpSendsPruned = n
		metrics.AddSweepRows(StepOtpSends, n)
	}

	err := database.WithTx(ctx, s.db, func(ctx context.Context) error {
		n, err := s.repos.Holds.ExpireOverdue(ctx, now)
		if err != nil {
			return err
		}
		released, err := s.repos.Claims.PurgeExpired(ctx, now)
		if err != nil {
			return err
		}
		rep.HoldsExpired, rep.ClaimsReleased = n, released
		return nil
	})
	if err != nil {
		rep.HoldsExpired, rep.ClaimsReleased = 0, 0
		failed(StepHolds, err)
	} else {
		metrics.AddSweepRows(StepHolds, rep.HoldsExpired)
	}

	if n, err := s.repos.Tokens.DeleteExpired(ctx, now); err != nil {
		failed(StepManageTokens, err)
	} else {
		rep.TokensDeleted = n
		metrics.AddSweepRows(StepManageTokens, n)
	}

	if rep.OtpCodesDeleted+rep.OtpSendsPruned+rep.HoldsExpired+rep.ClaimsReleased+rep.TokensDeleted > 0 || len(rep.Errors) > 0 {
		s.logger.Info().
			Int64("otp_codes", rep.OtpCodesDeleted).
			Int64("otp_sends", rep.OtpSendsPruned).
			Int64("holds_expired", rep.HoldsExpired).
			Int64("claims_released", rep.ClaimsReleased).
			Int64("tokens", rep.TokensDeleted).
			Int("failed_steps", len(rep.Errors)).
			Msg("sweep finished")
	}
	return rep
}
