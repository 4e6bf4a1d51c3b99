package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/notify"
	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/utils"
)

// ManageService resolves management links and cancels bookings through
// them.
type ManageService struct {
	db       *sql.DB
	repos    *repository.Set
	notifier Notifier
	secret   string
	baseURL  string
	logger   zerolog.Logger
	opts     options
}

// NewManageService wires the management gateway. manageSecret must match
// the one HoldService signs tokens with.
func NewManageService(db *sql.DB, repos *repository.Set, notifier Notifier, manageSecret, publicBaseURL string, logger zerolog.Logger, opts ...Option) *ManageService {
	return &ManageService{
		db:       db,
		repos:    repos,
		notifier: notifier,
		secret:   manageSecret,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		logger:   logger.With().Str("component", "manage").Logger(),
		opts:     buildOptions(opts),
	}
}

// BookingView is the booking as shown through a management link.
type BookingView struct {
	ID              uint64 `json:"id"`
	SalonName       string `json:"salonName"`
	ServiceName     string `json:"serviceName"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Status          string `json:"status"`
	TotalPriceCents uint32 `json:"totalPriceCents"`
}

func viewOf(d model.BookingDetail) *BookingView {
	return &BookingView{
		ID:              d.ID,
		SalonName:       d.SalonName,
		ServiceName:     d.ServiceName,
		CustomerName:    d.CustomerName,
		CustomerPhone:   d.CustomerPhone,
		Date:            d.Date,
		Time:            d.Time,
		Status:          string(d.Status),
		TotalPriceCents: d.TotalPriceCents,
	}
}

// ManageResult is returned by ResolveManageToken.  TokenID identifies the
// token row for a following CancelBooking call; it is never serialized.
type ManageResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Booking *BookingView `json:"booking,omitempty"`
	TokenID string       `json:"-"`
	Outcome Outcome      `json:"-"`
}

// ResolveManageToken validates a management token and loads its booking.
// A token is accepted only when its signature, expiry and purpose are
// valid and its stored row exists, has not expired and has not been used.
// Used tokens are retired for viewing as well as cancelling.
func (s *ManageService) ResolveManageToken(ctx context.Context, raw string) ManageResult {
	denied := ManageResult{Message: MsgInvalidLink, Outcome: OutcomeUnauthorized}
	now := s.opts.clock.Now()

	claims, err := utils.ParseManageToken(s.secret, raw, now)
	if err != nil {
		return denied
	}
	tok, err := s.repos.Tokens.GetByToken(ctx, raw)
	if errors.Is(err, repository.ErrNotFound) {
		return denied
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("load manage token")
		return ManageResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	if tok.IsUsed || !tok.ExpiresAt.After(now) || tok.BookingID != claims.BookingID {
		return denied
	}

	d, err := s.repos.Bookings.GetDetail(ctx, tok.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return denied
	}
	if err != nil {
		s.logger.Error().Err(err).Uint64("booking_id", tok.BookingID).Msg("load booking")
		return ManageResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	return ManageResult{Success: true, Booking: viewOf(d), TokenID: tok.ID, Outcome: OutcomeOK}
}

// CancelBooking cancels bookingID and retires the token it was reached
// through, then frees the slot and texts the customer.
func (s *ManageService) CancelBooking(ctx context.Context, bookingID uint64, tokenID string) Result {
	d, err := s.repos.Bookings.GetDetail(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(OutcomeConflict, "booking not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Uint64("booking_id", bookingID).Msg("load booking")
		return fail(OutcomeInternal, MsgInternal)
	}
	switch d.Status {
	case model.BookingCancelled:
		return fail(OutcomeConflict, MsgAlreadyCancel)
	case model.BookingCompleted:
		return fail(OutcomeConflict, MsgCompleted)
	}

	now := s.opts.clock.Now()
	var tokenUsed bool
	err = database.WithTx(ctx, s.db, func(ctx context.Context) error {
		err := s.repos.Bookings.TransitionStatus(ctx, bookingID, model.BookingCancelled, now,
			model.BookingPending, model.BookingConfirmed)
		if err != nil {
			return err
		}
		if err := s.repos.Tokens.MarkUsed(ctx, tokenID); err != nil {
			tokenUsed = errors.Is(err, repository.ErrStaleState)
			return err
		}
		if err := s.repos.Claims.ReleaseByBooking(ctx, bookingID); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	switch {
	case tokenUsed:
		return fail(OutcomeUnauthorized, MsgInvalidLink)
	case errors.Is(err, repository.ErrStaleState):
		// another request moved the booking on first
		return fail(OutcomeConflict, MsgAlreadyCancel)
	case err != nil:
		s.logger.Error().Err(err).Uint64("booking_id", bookingID).Msg("cancel booking")
		return fail(OutcomeInternal, MsgInternal)
	}

	s.logger.Info().Uint64("booking_id", bookingID).Msg("booking cancelled")
	err = s.notifier.Notify(ctx, notify.Notification{
		Kind:      queue.KindBookingCancelled,
		BookingID: bookingID,
		Phone:     d.CustomerPhone,
		Text:      notify.CancellationText(d.Date, d.Time, s.baseURL+"/book"),
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint64("booking_id", bookingID).Msg("cancellation notification failed")
	}
	return ok("booking cancelled")
}
