package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// CustomerRepo mirrors the customers table.  Customers are scoped to a
// salon and identified by their normalized phone number.
type CustomerRepo struct{ db *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// GetByPhone fetches a customer of salonID by E.164 phone.
func (r *CustomerRepo) GetByPhone(ctx context.Context, salonID uint64, phone string) (model.Customer, error) {
	var c model.Customer
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id, salon_id, name, phone, created_at, updated_at FROM customers WHERE salon_id = ? AND phone = ? LIMIT 1",
		salonID, phone).Scan(&c.ID, &c.SalonID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

// Create inserts a customer and returns it with its ID.  A concurrent
// insert for the same salon and phone yields ErrConflict.
func (r *CustomerRepo) Create(ctx context.Context, salonID uint64, name, phone string, now time.Time) (model.Customer, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO customers (salon_id, name, phone, created_at, updated_at) VALUES (?,?,?,?,?)",
		salonID, name, phone, now.UTC(), now.UTC())
	if err != nil {
		if isDuplicate(err) {
			return model.Customer{}, ErrConflict
		}
		return model.Customer{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Customer{}, err
	}
	return model.Customer{ID: uint64(id), SalonID: salonID, Name: name, Phone: phone, CreatedAt: now, UpdatedAt: now}, nil
}

// UpdateName stores a new display name for the customer.
func (r *CustomerRepo) UpdateName(ctx context.Context, id uint64, name string, now time.Time) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE customers SET name = ?, updated_at = ? WHERE id = ?", name, now.UTC(), id)
	return err
}

// FindOrCreate returns the salon's customer with phone, creating it when
// missing and renaming it when name differs from the stored one.
func (r *CustomerRepo) FindOrCreate(ctx context.Context, salonID uint64, name, phone string, now time.Time) (model.Customer, error) {
	c, err := r.GetByPhone(ctx, salonID, phone)
	switch {
	case errors.Is(err, ErrNotFound):
		c, err = r.Create(ctx, salonID, name, phone, now)
		if errors.Is(err, ErrConflict) {
			// lost a race with another confirmation for the same phone
			return r.GetByPhone(ctx, salonID, phone)
		}
		return c, err
	case err != nil:
		return model.Customer{}, err
	}
	if name != "" && c.Name != name {
		if err := r.UpdateName(ctx, c.ID, name, now); err != nil {
			return model.Customer{}, err
		}
		c.Name = name
		c.UpdatedAt = now
	}
	return c, nil
}
