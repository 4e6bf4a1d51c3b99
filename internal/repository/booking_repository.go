package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// BookingRepo provides access to the bookings table.  Bookings are created
// by hold promotion and cancelled through management tokens; both paths
// run inside a transaction supplied via the context.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// HasActiveOnSlot reports whether a PENDING or CONFIRMED booking exists
// for the slot.
func (r *BookingRepo) HasActiveOnSlot(ctx context.Context, s model.Slot) (bool, error) {
	const q = `SELECT 1 FROM bookings
	           WHERE salon_id = ? AND service_id = ? AND slot_date = ? AND slot_time = ? AND status IN (?, ?)
	           LIMIT 1`
	var one int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q,
		s.SalonID, s.ServiceID, s.Date, s.Time,
		string(model.BookingPending), string(model.BookingConfirmed),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a booking and populates its generated ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (salon_id, service_id, customer_id, slot_date, slot_time, status, total_price_cents, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		b.SalonID, b.ServiceID, b.CustomerID, b.Date, b.Time,
		string(b.Status), b.TotalPriceCents, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID loads a booking or returns ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	const q = `SELECT id, salon_id, service_id, customer_id, slot_date, slot_time, status, total_price_cents, created_at, updated_at
	           FROM bookings WHERE id = ?`
	var (
		b      model.Booking
		status string
	)
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.SalonID, &b.ServiceID, &b.CustomerID, &b.Date, &b.Time,
		&status, &b.TotalPriceCents, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

// GetDetail loads a booking together with its salon, service and customer.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (model.BookingDetail, error) {
	const q = `SELECT b.id, b.salon_id, b.service_id, b.customer_id, b.slot_date, b.slot_time,
	                  b.status, b.total_price_cents, b.created_at, b.updated_at,
	                  s.name, sv.name, c.name, c.phone
	           FROM bookings b
	           JOIN salons s ON s.id = b.salon_id
	           JOIN salon_services sv ON sv.id = b.service_id
	           JOIN customers c ON c.id = b.customer_id
	           WHERE b.id = ?`
	var (
		d      model.BookingDetail
		status string
	)
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.SalonID, &d.ServiceID, &d.CustomerID, &d.Date, &d.Time,
		&status, &d.TotalPriceCents, &d.CreatedAt, &d.UpdatedAt,
		&d.SalonName, &d.ServiceName, &d.CustomerName, &d.CustomerPhone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingDetail{}, ErrNotFound
	}
	if err != nil {
		return model.BookingDetail{}, err
	}
	d.Status = model.BookingStatus(status)
	return d, nil
}

// TransitionStatus sets the booking to status "to" only when its current
// status is one of "from".  ErrStaleState signals that the booking moved
// on concurrently.
func (r *BookingRepo) TransitionStatus(ctx context.Context, id uint64, to model.BookingStatus, now time.Time, from ...model.BookingStatus) error {
	if len(from) == 0 {
		return ErrStaleState
	}
	args := make([]any, 0, 3+len(from))
	args = append(args, string(to), now.UTC(), id)
	for _, s := range from {
		args = append(args, string(s))
	}
	q := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (?` +
		strings.Repeat(", ?", len(from)-1) + `)`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}
