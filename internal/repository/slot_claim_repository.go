package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// SlotClaimRepo guards slot exclusivity.  The slot_claims primary key is
// the slot identity, so inserting a claim is the atomic "reserve if free"
// step.  A claim belongs to a hold (booking_id NULL, expires_at set) until
// the hold is promoted, after which it belongs to the booking and never
// expires on its own.
type SlotClaimRepo struct {
	db *sql.DB
}

// NewSlotClaimRepo returns a new SlotClaimRepo bound to the provided database.
func NewSlotClaimRepo(db *sql.DB) *SlotClaimRepo { return &SlotClaimRepo{db: db} }

// Claim inserts a claim for slot on behalf of holdID.  It returns
// ErrSlotTaken when another claim already exists for the slot, or when a
// concurrent claim for the same slot made the database abort this one.
func (r *SlotClaimRepo) Claim(ctx context.Context, s model.Slot, holdID string, expiresAt time.Time) error {
	const q = `INSERT INTO slot_claims (salon_id, service_id, slot_date, slot_time, hold_id, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		s.SalonID, s.ServiceID, s.Date, s.Time, holdID, expiresAt.UTC())
	return claimError(err)
}

func claimError(err error) error {
	switch {
	case isLockConflict(err):
		return ErrSlotContended
	case isDuplicate(err):
		return ErrSlotTaken
	}
	return err
}

// ReleaseStale deletes the claim on slot if it still belongs to a hold and
// its expiry is not after now.  It lets a new hold take over a slot whose
// previous hold lapsed before the sweeper ran.  Call it only after Claim
// found the slot taken: the row then exists, so MySQL locks that row
// instead of the index gap two new claims would deadlock on.
func (r *SlotClaimRepo) ReleaseStale(ctx context.Context, s model.Slot, now time.Time) (int64, error) {
	const q = `DELETE FROM slot_claims
	           WHERE salon_id = ? AND service_id = ? AND slot_date = ? AND slot_time = ?
	             AND booking_id IS NULL AND expires_at <= ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		s.SalonID, s.ServiceID, s.Date, s.Time, now.UTC())
	if err != nil {
		return 0, claimError(err)
	}
	return res.RowsAffected()
}

// AssignBooking hands the claim held by holdID over to bookingID.  It
// returns ErrStaleState when the hold no longer owns a claim.
func (r *SlotClaimRepo) AssignBooking(ctx context.Context, holdID string, bookingID uint64) error {
	const q = `UPDATE slot_claims SET booking_id = ?, expires_at = NULL WHERE hold_id = ? AND booking_id IS NULL`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, bookingID, holdID)
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// ReleaseByHold removes the claim owned by an unpromoted hold.
func (r *SlotClaimRepo) ReleaseByHold(ctx context.Context, holdID string) error {
	const q = `DELETE FROM slot_claims WHERE hold_id = ? AND booking_id IS NULL`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q, holdID)
	return err
}

// ReleaseByBooking removes the claim owned by a booking.
func (r *SlotClaimRepo) ReleaseByBooking(ctx context.Context, bookingID uint64) error {
	const q = `DELETE FROM slot_claims WHERE booking_id = ?`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q, bookingID)
	return err
}

// PurgeExpired deletes hold claims whose expiry is before now and returns
// how many were removed.
func (r *SlotClaimRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM slot_claims WHERE booking_id IS NULL AND expires_at < ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TakenTimes lists the slot times on date that are held by an active hold
// or by a PENDING/CONFIRMED booking, in ascending order.
func (r *SlotClaimRepo) TakenTimes(ctx context.Context, salonID, serviceID uint64, date string, now time.Time) ([]string, error) {
	const q = `SELECT slot_time FROM slot_claims
	           WHERE salon_id = ? AND service_id = ? AND slot_date = ?
	             AND (booking_id IS NOT NULL OR expires_at > ?)
	           UNION
	           SELECT slot_time FROM bookings
	           WHERE salon_id = ? AND service_id = ? AND slot_date = ? AND status IN (?, ?)
	           ORDER BY slot_time`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q,
		salonID, serviceID, date, now.UTC(),
		salonID, serviceID, date, string(model.BookingPending), string(model.BookingConfirmed),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	times := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}
