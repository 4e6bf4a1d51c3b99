package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// ServiceRepo reads the salon_services catalogue.  The catalogue is managed
// outside this service; holds only need to validate a service and copy
// its price.
type ServiceRepo struct{ db *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// GetByID fetches a service or returns ErrNotFound.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.SalonService, error) {
	var s model.SalonService
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id, salon_id, name, price_cents, duration_minutes, is_active FROM salon_services WHERE id = ?",
		id).Scan(&s.ID, &s.SalonID, &s.Name, &s.PriceCents, &s.DurationMinutes, &s.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SalonService{}, ErrNotFound
	}
	return s, err
}
