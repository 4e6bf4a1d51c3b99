package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/sms"
	"github.com/iliyamo/salon-booking/internal/utils"
)

const codeLength = 6

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// OtpService issues and verifies one-time phone verification codes.
type OtpService struct {
	db      *sql.DB
	repos   *repository.Set
	gateway sms.Gateway
	logger  zerolog.Logger
	opts    options
}

// NewOtpService wires the OTP engine; gateway delivers the codes.
func NewOtpService(db *sql.DB, repos *repository.Set, gateway sms.Gateway, logger zerolog.Logger, opts ...Option) *OtpService {
	return &OtpService{
		db:      db,
		repos:   repos,
		gateway: gateway,
		logger:  logger.With().Str("component", "otp").Logger(),
		opts:    buildOptions(opts),
	}
}

// OtpResult is returned by SendOtp and VerifyOtp.  RetryAfter is set, in
// seconds, when a new code was requested too soon.
type OtpResult struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	RetryAfter int     `json:"retryAfter,omitempty"`
	Phone      string  `json:"-"`
	Outcome    Outcome `json:"-"`
}

// SendOtp issues a new code for phone and texts it.  Two gates apply: one
// code per cooldown period, and at most MaxPerWindow codes per window.
// Issuing a code retires every earlier unused code of the phone.  When the
// text cannot be delivered the call fails but the stored code is kept.
//
// Two concurrent calls for the same phone may both pass the cooldown gate.
func (s *OtpService) SendOtp(ctx context.Context, rawPhone string) OtpResult {
	res := s.sendOtp(ctx, rawPhone)
	metrics.IncOTP("send", res.Outcome.String())
	return res
}

func (s *OtpService) sendOtp(ctx context.Context, rawPhone string) OtpResult {
	phone, err := NormalizePhone(rawPhone, s.opts.countryCode)
	if err != nil {
		return OtpResult{Message: err.Error(), Outcome: OutcomeInvalid}
	}
	cfg := s.opts.otp
	now := s.opts.clock.Now()

	last, found, err := s.repos.Otp.LatestSend(ctx, phone, now.Add(-cfg.Cooldown))
	if err != nil {
		s.logger.Error().Err(err).Str("phone", phone).Msg("cooldown lookup")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	if found {
		wait := int(math.Ceil(cfg.Cooldown.Seconds() - now.Sub(last).Seconds()))
		maxWait := int(math.Ceil(cfg.Cooldown.Seconds()))
		if wait < 1 {
			wait = 1
		}
		if wait > maxWait {
			wait = maxWait
		}
		return OtpResult{Message: MsgOtpCooldown, RetryAfter: wait, Phone: phone, Outcome: OutcomeRateLimited}
	}

	n, err := s.repos.Otp.CountSends(ctx, phone, now.Add(-cfg.Window))
	if err != nil {
		s.logger.Error().Err(err).Str("phone", phone).Msg("volume lookup")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	if n >= cfg.MaxPerWindow {
		return OtpResult{Message: MsgOtpTryLater, Phone: phone, Outcome: OutcomeRateLimited}
	}

	code, err := utils.RandomDigits(codeLength)
	if err != nil {
		s.logger.Error().Err(err).Msg("generate code")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	hash, err := utils.HashSecret(code, cfg.BcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("hash code")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	row := model.OtpCode{
		ID:          uuid.NewString(),
		Phone:       phone,
		CodeHash:    hash,
		ExpiresAt:   now.Add(cfg.TTL),
		MaxAttempts: cfg.MaxAttempts,
		CreatedAt:   now,
	}
	err = database.WithTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.repos.Otp.InvalidateUnused(ctx, phone); err != nil {
			return fmt.Errorf("invalidate codes: %w", err)
		}
		if err := s.repos.Otp.Create(ctx, &row); err != nil {
			return err
		}
		return s.repos.Otp.LogSend(ctx, phone, now)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("phone", phone).Msg("store code")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}

	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(cfg.TTL.Minutes()))
	id, err := s.gateway.Send(ctx, sms.Message{To: phone, Text: text})
	if err != nil {
		s.logger.Error().Err(err).Str("phone", phone).Str("otp_id", row.ID).Msg("send code")
		return OtpResult{Message: "could not send the code, please try again", Phone: phone, Outcome: OutcomeInternal}
	}
	s.logger.Info().Str("phone", phone).Str("otp_id", row.ID).Str("message_id", id).Msg("code sent")
	return OtpResult{Success: true, Message: "code sent", Phone: phone, Outcome: OutcomeOK}
}

// VerifyOtp checks code against the newest active code of phone.  Each
// failed comparison counts against the code's attempt budget, and a
// matching code can be used only once.
func (s *OtpService) VerifyOtp(ctx context.Context, rawPhone, code string) OtpResult {
	res := s.verifyOtp(ctx, rawPhone, code)
	metrics.IncOTP("verify", res.Outcome.String())
	return res
}

func (s *OtpService) verifyOtp(ctx context.Context, rawPhone, code string) OtpResult {
	phone, err := NormalizePhone(rawPhone, s.opts.countryCode)
	if err != nil {
		return OtpResult{Message: err.Error(), Outcome: OutcomeInvalid}
	}
	now := s.opts.clock.Now()

	row, err := s.repos.Otp.FindActive(ctx, phone, now)
	if errors.Is(err, repository.ErrNotFound) {
		return OtpResult{Message: MsgInvalidCode, Phone: phone, Outcome: OutcomeConflict}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("phone", phone).Msg("load code")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	if row.Attempts >= row.MaxAttempts {
		return OtpResult{Message: MsgTooManyAttempts, Phone: phone, Outcome: OutcomeConflict}
	}

	if !codePattern.MatchString(code) || !utils.VerifySecret(row.CodeHash, code) {
		if err := s.repos.Otp.IncrementAttempts(ctx, row.ID); err != nil {
			s.logger.Error().Err(err).Str("otp_id", row.ID).Msg("count failed attempt")
		}
		return OtpResult{Message: MsgInvalidCode, Phone: phone, Outcome: OutcomeConflict}
	}

	if err := s.repos.Otp.MarkUsed(ctx, row.ID); errors.Is(err, repository.ErrStaleState) {
		return OtpResult{Message: MsgInvalidCode, Phone: phone, Outcome: OutcomeConflict}
	} else if err != nil {
		s.logger.Error().Err(err).Str("otp_id", row.ID).Msg("consume code")
		return OtpResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	return OtpResult{Success: true, Message: "phone verified", Phone: phone, Outcome: OutcomeOK}
}
