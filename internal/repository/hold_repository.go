package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// HoldRepo provides data access to the booking_holds table.  All
// timestamps are written and compared in UTC; callers pass "now"
// explicitly so expiry follows the service clock.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

const holdColumns = `id, salon_id, service_id, slot_date, slot_time, customer_name, customer_phone, status, expires_at, created_at`

// Create inserts a hold row.  The slot claim is written separately by
// SlotClaimRepo.Claim inside the same transaction.
func (r *HoldRepo) Create(ctx context.Context, h *model.BookingHold) error {
	const q = `INSERT INTO booking_holds (` + holdColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		h.ID, h.SalonID, h.ServiceID, h.Date, h.Time,
		nullString(h.CustomerName), nullString(h.CustomerPhone),
		string(h.Status), h.ExpiresAt.UTC(), h.CreatedAt.UTC(),
	)
	return err
}

// GetByID loads a hold.  It returns ErrNotFound when the id is unknown.
func (r *HoldRepo) GetByID(ctx context.Context, id string) (model.BookingHold, error) {
	const q = `SELECT ` + holdColumns + ` FROM booking_holds WHERE id = ?`
	var (
		h      model.BookingHold
		status string
		name   sql.NullString
		phone  sql.NullString
	)
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&h.ID, &h.SalonID, &h.ServiceID, &h.Date, &h.Time,
		&name, &phone, &status, &h.ExpiresAt, &h.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingHold{}, ErrNotFound
	}
	if err != nil {
		return model.BookingHold{}, err
	}
	h.Status = model.HoldStatus(status)
	h.CustomerName = stringPtr(name)
	h.CustomerPhone = stringPtr(phone)
	h.ExpiresAt = h.ExpiresAt.UTC()
	h.CreatedAt = h.CreatedAt.UTC()
	return h, nil
}

// Confirm flips a RESERVED, unexpired hold to CONFIRMED.  It returns
// ErrStaleState when the hold changed state or expired in the meantime.
func (r *HoldRepo) Confirm(ctx context.Context, id string, now time.Time) error {
	const q = `UPDATE booking_holds SET status = ? WHERE id = ? AND status = ? AND expires_at > ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		string(model.HoldConfirmed), id, string(model.HoldReserved), now.UTC())
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// Cancel flips a RESERVED hold to CANCELLED.  Holds in a terminal state are
// left alone and ErrStaleState is returned.
func (r *HoldRepo) Cancel(ctx context.Context, id string) error {
	const q = `UPDATE booking_holds SET status = ? WHERE id = ? AND status = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		string(model.HoldCancelled), id, string(model.HoldReserved))
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// ExpireOverdue marks every RESERVED hold whose expiry is before now as
// EXPIRED and returns the number of holds changed.  Holds already in a
// terminal state are not touched, so repeated calls are no-ops.
func (r *HoldRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE booking_holds SET status = ? WHERE status = ? AND expires_at < ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		string(model.HoldExpired), string(model.HoldReserved), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
