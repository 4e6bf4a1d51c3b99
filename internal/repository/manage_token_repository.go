package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// ManageTokenRepo persists booking management credentials.
type ManageTokenRepo struct {
	db *sql.DB
}

// NewManageTokenRepo returns a new ManageTokenRepo bound to the given database.
func NewManageTokenRepo(db *sql.DB) *ManageTokenRepo { return &ManageTokenRepo{db: db} }

// Create inserts a token row.
func (r *ManageTokenRepo) Create(ctx context.Context, t *model.ManageToken) error {
	const q = `INSERT INTO manage_tokens (id, booking_id, token, expires_at, is_used, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		t.ID, t.BookingID, t.Token, t.ExpiresAt.UTC(), t.IsUsed, t.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// GetByToken looks a token row up by its raw token string.
func (r *ManageTokenRepo) GetByToken(ctx context.Context, token string) (model.ManageToken, error) {
	const q = `SELECT id, booking_id, token, expires_at, is_used, created_at FROM manage_tokens WHERE token = ?`
	var t model.ManageToken
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, token).Scan(
		&t.ID, &t.BookingID, &t.Token, &t.ExpiresAt, &t.IsUsed, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ManageToken{}, ErrNotFound
	}
	if err != nil {
		return model.ManageToken{}, err
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

// MarkUsed retires the token.  A token that is already used yields
// ErrStaleState.
func (r *ManageTokenRepo) MarkUsed(ctx context.Context, id string) error {
	const q = `UPDATE manage_tokens SET is_used = ? WHERE id = ? AND is_used = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, true, id, false)
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// DeleteExpired removes tokens whose expiry is before now.
func (r *ManageTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM manage_tokens WHERE expires_at < ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
