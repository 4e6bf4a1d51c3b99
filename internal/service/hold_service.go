package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/notify"
	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/utils"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// HoldService reserves slots and promotes holds into bookings.
type HoldService struct {
	db           *sql.DB
	repos        *repository.Set
	notifier     Notifier
	manageSecret string
	baseURL      string
	logger       zerolog.Logger
	opts         options
}

// NewHoldService wires the hold engine.  manageSecret signs management
// tokens and publicBaseURL prefixes the links sent to customers.
func NewHoldService(db *sql.DB, repos *repository.Set, notifier Notifier, manageSecret, publicBaseURL string, logger zerolog.Logger, opts ...Option) *HoldService {
	return &HoldService{
		db:           db,
		repos:        repos,
		notifier:     notifier,
		manageSecret: manageSecret,
		baseURL:      strings.TrimRight(publicBaseURL, "/"),
		logger:       logger.With().Str("component", "hold").Logger(),
		opts:         buildOptions(opts),
	}
}

// CreateHoldInput describes the slot to reserve.
type CreateHoldInput struct {
	SalonID       uint64
	ServiceID     uint64
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	CustomerName  string
	CustomerPhone string
}

// HoldResult is returned by CreateHold.
type HoldResult struct {
	Success bool    `json:"success"`
	HoldID  string  `json:"holdId,omitempty"`
	Message string  `json:"message"`
	Outcome Outcome `json:"-"`
}

// ConfirmResult is returned by ConfirmBooking.
type ConfirmResult struct {
	Success   bool    `json:"success"`
	BookingID uint64  `json:"bookingId,omitempty"`
	ManageURL string  `json:"manageUrl,omitempty"`
	Message   string  `json:"message"`
	Outcome   Outcome `json:"-"`
}

// HoldStatusResult is returned by GetHoldStatus.
type HoldStatusResult struct {
	Exists    bool       `json:"exists"`
	Status    string     `json:"status,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Outcome   Outcome    `json:"-"`
}

// TakenResult is returned by TakenTimes.
type TakenResult struct {
	Date    string   `json:"date"`
	Times   []string `json:"times"`
	Message string   `json:"message,omitempty"`
	Outcome Outcome  `json:"-"`
}

// validSlot checks the date and time strings of a slot.
func validSlot(date, at string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if len(at) != len(timeLayout) {
		return fmt.Errorf("time must be HH:MM")
	}
	if _, err := time.Parse(timeLayout, at); err != nil {
		return fmt.Errorf("time must be HH:MM")
	}
	return nil
}

// CreateHold reserves a slot for the hold TTL.  Exclusivity is enforced by
// the slot claim inserted in the same transaction as the hold: a concurrent
// request for the same slot fails with "slot taken".
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) HoldResult {
	res := s.createHold(ctx, in)
	metrics.IncHold("create", res.Outcome.String())
	return res
}

func (s *HoldService) createHold(ctx context.Context, in CreateHoldInput) HoldResult {
	if in.SalonID == 0 || in.ServiceID == 0 {
		return HoldResult{Message: "salonId and serviceId are required", Outcome: OutcomeInvalid}
	}
	if err := validSlot(in.Date, in.Time); err != nil {
		return HoldResult{Message: err.Error(), Outcome: OutcomeInvalid}
	}

	hold := model.BookingHold{
		ID:        uuid.NewString(),
		SalonID:   in.SalonID,
		ServiceID: in.ServiceID,
		Date:      in.Date,
		Time:      in.Time,
		Status:    model.HoldReserved,
	}
	if name := strings.TrimSpace(in.CustomerName); name != "" {
		hold.CustomerName = &name
	}
	if in.CustomerPhone != "" {
		phone, err := NormalizePhone(in.CustomerPhone, s.opts.countryCode)
		if err != nil {
			return HoldResult{Message: err.Error(), Outcome: OutcomeInvalid}
		}
		hold.CustomerPhone = &phone
	}

	svc, err := s.repos.Services.GetByID(ctx, in.ServiceID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (svc.SalonID != in.SalonID || !svc.IsActive)) {
		return HoldResult{Message: "service is not available at this salon", Outcome: OutcomeInvalid}
	}
	if err != nil {
		s.logger.Error().Err(err).Uint64("service_id", in.ServiceID).Msg("load service")
		return HoldResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}

	now := s.opts.clock.Now()
	hold.CreatedAt = now
	hold.ExpiresAt = now.Add(s.opts.holdTTL)
	slot := hold.Slot()

	err = database.WithTx(ctx, s.db, func(ctx context.Context) error {
		booked, err := s.repos.Bookings.HasActiveOnSlot(ctx, slot)
		if err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if booked {
			return repository.ErrSlotTaken
		}
		if err := s.repos.Holds.Create(ctx, &hold); err != nil {
			return fmt.Errorf("insert hold: %w", err)
		}
		err = s.repos.Claims.Claim(ctx, slot, hold.ID, hold.ExpiresAt)
		if !errors.Is(err, repository.ErrSlotTaken) || errors.Is(err, repository.ErrSlotContended) {
			return err
		}
		// the slot may still be claimed by a hold that lapsed before the
		// sweeper ran
		released, err := s.repos.Claims.ReleaseStale(ctx, slot, now)
		if err != nil {
			return fmt.Errorf("release stale claim: %w", err)
		}
		if released == 0 {
			return repository.ErrSlotTaken
		}
		return s.repos.Claims.Claim(ctx, slot, hold.ID, hold.ExpiresAt)
	})
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return HoldResult{Message: MsgSlotTaken, Outcome: OutcomeConflict}
	case err != nil:
		s.logger.Error().Err(err).Interface("slot", slot).Msg("create hold")
		return HoldResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}

	s.logger.Info().Str("hold_id", hold.ID).Interface("slot", slot).Time("expires_at", hold.ExpiresAt).Msg("hold created")
	return HoldResult{Success: true, HoldID: hold.ID, Message: "slot reserved", Outcome: OutcomeOK}
}

// ConfirmBooking promotes a RESERVED, unexpired hold into a CONFIRMED
// booking for the given customer, mints a management link and sends the
// confirmation text.  The caller must have verified customerPhone.
func (s *HoldService) ConfirmBooking(ctx context.Context, holdID, customerName, customerPhone string) ConfirmResult {
	res := s.confirmBooking(ctx, holdID, customerName, customerPhone)
	metrics.IncHold("confirm", res.Outcome.String())
	return res
}

func (s *HoldService) confirmBooking(ctx context.Context, holdID, customerName, customerPhone string) ConfirmResult {
	phone, err := NormalizePhone(customerPhone, s.opts.countryCode)
	if err != nil {
		return ConfirmResult{Message: err.Error(), Outcome: OutcomeInvalid}
	}

	hold, err := s.repos.Holds.GetByID(ctx, holdID)
	if errors.Is(err, repository.ErrNotFound) {
		return ConfirmResult{Message: MsgHoldNotFound, Outcome: OutcomeConflict}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("hold_id", holdID).Msg("load hold")
		return ConfirmResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}
	now := s.opts.clock.Now()
	if hold.Status.Terminal() {
		return ConfirmResult{Message: MsgHoldNotActive, Outcome: OutcomeConflict}
	}
	if !hold.ActiveAt(now) {
		return ConfirmResult{Message: MsgHoldExpired, Outcome: OutcomeConflict}
	}

	name := strings.TrimSpace(customerName)
	if name == "" && hold.CustomerName != nil {
		name = *hold.CustomerName
	}
	if name == "" {
		return ConfirmResult{Message: "customerName is required", Outcome: OutcomeInvalid}
	}

	var (
		booking model.Booking
		token   utils.ManageToken
	)
	err = database.WithTx(ctx, s.db, func(ctx context.Context) error {
		// The guarded update re-checks status and expiry, so a hold that
		// was cancelled or lapsed since the read above is not promoted.
		if err := s.repos.Holds.Confirm(ctx, hold.ID, now); err != nil {
			return err
		}
		svc, err := s.repos.Services.GetByID(ctx, hold.ServiceID)
		if err != nil {
			return fmt.Errorf("load service: %w", err)
		}
		customer, err := s.repos.Customers.FindOrCreate(ctx, hold.SalonID, name, phone, now)
		if err != nil {
			return fmt.Errorf("customer: %w", err)
		}
		booking = model.Booking{
			SalonID:         hold.SalonID,
			ServiceID:       hold.ServiceID,
			CustomerID:      customer.ID,
			Date:            hold.Date,
			Time:            hold.Time,
			Status:          model.BookingConfirmed,
			TotalPriceCents: svc.PriceCents,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repos.Bookings.Create(ctx, &booking); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if err := s.repos.Claims.AssignBooking(ctx, hold.ID, booking.ID); err != nil {
			return err
		}

		token, err = utils.NewManageToken(s.manageSecret, booking.ID, now, s.opts.manageTTL)
		if err != nil {
			return fmt.Errorf("sign manage token: %w", err)
		}
		return s.repos.Tokens.Create(ctx, &model.ManageToken{
			ID:        uuid.NewString(),
			BookingID: booking.ID,
			Token:     token.Token,
			ExpiresAt: token.Exp,
			CreatedAt: now,
		})
	})
	switch {
	case errors.Is(err, repository.ErrStaleState):
		return ConfirmResult{Message: MsgHoldNotActive, Outcome: OutcomeConflict}
	case err != nil:
		s.logger.Error().Err(err).Str("hold_id", hold.ID).Msg("confirm booking")
		return ConfirmResult{Message: MsgInternal, Outcome: OutcomeInternal}
	}

	manageURL := s.baseURL + "/manage/" + token.Token
	s.logger.Info().Str("hold_id", hold.ID).Uint64("booking_id", booking.ID).Msg("booking confirmed")
	s.notifyConfirmed(ctx, booking.ID, phone, manageURL)

	return ConfirmResult{
		Success:   true,
		BookingID: booking.ID,
		ManageURL: manageURL,
		Message:   "booking confirmed",
		Outcome:   OutcomeOK,
	}
}

// notifyConfirmed sends the confirmation text.  The booking is already
// committed, so failures are only logged.
func (s *HoldService) notifyConfirmed(ctx context.Context, bookingID uint64, phone, manageURL string) {
	d, err := s.repos.Bookings.GetDetail(ctx, bookingID)
	if err != nil {
		s.logger.Error().Err(err).Uint64("booking_id", bookingID).Msg("load booking for confirmation text")
		return
	}
	err = s.notifier.Notify(ctx, notify.Notification{
		Kind:      queue.KindBookingConfirmed,
		BookingID: bookingID,
		Phone:     phone,
		Text:      notify.ConfirmationText(d.SalonName, d.ServiceName, d.Date, d.Time, manageURL),
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint64("booking_id", bookingID).Msg("confirmation notification failed")
	}
}

// CancelHold cancels a RESERVED hold and frees its slot.  Holds that are
// already confirmed, cancelled or expired cannot be cancelled.
func (s *HoldService) CancelHold(ctx context.Context, holdID string) Result {
	res := s.cancelHold(ctx, holdID)
	metrics.IncHold("cancel", res.Outcome.String())
	return res
}

func (s *HoldService) cancelHold(ctx context.Context, holdID string) Result {
	if holdID == "" {
		return fail(OutcomeInvalid, "holdId is required")
	}
	h, err := s.repos.Holds.GetByID(ctx, holdID)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(OutcomeConflict, MsgHoldNotFound)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("hold_id", holdID).Msg("load hold")
		return fail(OutcomeInternal, MsgInternal)
	}
	if h.Status.Terminal() {
		return fail(OutcomeConflict, MsgHoldNotActive)
	}

	err = database.WithTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.repos.Holds.Cancel(ctx, holdID); err != nil {
			return err
		}
		return s.repos.Claims.ReleaseByHold(ctx, holdID)
	})
	switch {
	case errors.Is(err, repository.ErrStaleState):
		return fail(OutcomeConflict, MsgHoldNotActive)
	case err != nil:
		s.logger.Error().Err(err).Str("hold_id", holdID).Msg("cancel hold")
		return fail(OutcomeInternal, MsgInternal)
	}
	return ok("hold cancelled")
}

// GetHoldStatus reports the stored state of a hold.
func (s *HoldService) GetHoldStatus(ctx context.Context, holdID string) HoldStatusResult {
	h, err := s.repos.Holds.GetByID(ctx, holdID)
	if errors.Is(err, repository.ErrNotFound) {
		return HoldStatusResult{Outcome: OutcomeOK}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("hold_id", holdID).Msg("load hold")
		return HoldStatusResult{Outcome: OutcomeInternal}
	}
	exp := h.ExpiresAt
	return HoldStatusResult{Exists: true, Status: string(h.Status), ExpiresAt: &exp, Outcome: OutcomeOK}
}

// TakenTimes lists the times on date already held or booked for the
// salon's service.
func (s *HoldService) TakenTimes(ctx context.Context, salonID, serviceID uint64, date string) TakenResult {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return TakenResult{Date: date, Times: []string{}, Message: "date must be YYYY-MM-DD", Outcome: OutcomeInvalid}
	}
	times, err := s.repos.Claims.TakenTimes(ctx, salonID, serviceID, date, s.opts.clock.Now())
	if err != nil {
		s.logger.Error().Err(err).Uint64("salon_id", salonID).Str("date", date).Msg("taken times")
		return TakenResult{Date: date, Times: []string{}, Message: MsgInternal, Outcome: OutcomeInternal}
	}
	return TakenResult{Date: date, Times: times, Outcome: OutcomeOK}
}
