package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/model"
)

// OtpRepo stores one-time verification codes.  Codes are never stored in
// clear; CodeHash carries a bcrypt hash.
type OtpRepo struct {
	db *sql.DB
}

// NewOtpRepo returns a new OtpRepo bound to the given database.
func NewOtpRepo(db *sql.DB) *OtpRepo { return &OtpRepo{db: db} }

const otpColumns = `id, phone, code_hash, expires_at, is_used, attempts, max_attempts, created_at`

// Create inserts a code row.
func (r *OtpRepo) Create(ctx context.Context, c *model.OtpCode) error {
	const q = `INSERT INTO otp_codes (` + otpColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		c.ID, c.Phone, c.CodeHash, c.ExpiresAt.UTC(), c.IsUsed,
		c.Attempts, c.MaxAttempts, c.CreatedAt.UTC(),
	)
	return err
}

// LogSend records that a code was issued to phone at at.  The send log
// outlives the codes themselves: codes are deleted once used or expired,
// while the cooldown and volume gates need every send inside their window.
func (r *OtpRepo) LogSend(ctx context.Context, phone string, at time.Time) error {
	const q = `INSERT INTO otp_sends (phone, created_at) VALUES (?, ?)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q, phone, at.UTC())
	return err
}

// LatestSend returns the time of the newest send to phone at or after
// since.  ok is false when there is none.
func (r *OtpRepo) LatestSend(ctx context.Context, phone string, since time.Time) (t time.Time, ok bool, err error) {
	const q = `SELECT created_at FROM otp_sends WHERE phone = ? AND created_at >= ? ORDER BY created_at DESC LIMIT 1`
	err = database.Conn(ctx, r.db).QueryRowContext(ctx, q, phone, since.UTC()).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

// CountSends counts the sends to phone at or after since.
func (r *OtpRepo) CountSends(ctx context.Context, phone string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM otp_sends WHERE phone = ? AND created_at >= ?`
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, phone, since.UTC()).Scan(&n)
	return n, err
}

// PruneSends deletes send records older than before.
func (r *OtpRepo) PruneSends(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM otp_sends WHERE created_at < ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InvalidateUnused marks every unused code of phone as used.
func (r *OtpRepo) InvalidateUnused(ctx context.Context, phone string) (int64, error) {
	const q = `UPDATE otp_codes SET is_used = ? WHERE phone = ? AND is_used = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, true, phone, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindActive returns the newest unused code for phone that has not expired
// at now.  It returns ErrNotFound when there is none.
func (r *OtpRepo) FindActive(ctx context.Context, phone string, now time.Time) (model.OtpCode, error) {
	const q = `SELECT ` + otpColumns + ` FROM otp_codes
	           WHERE phone = ? AND is_used = ? AND expires_at > ?
	           ORDER BY created_at DESC LIMIT 1`
	var c model.OtpCode
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, phone, false, now.UTC()).Scan(
		&c.ID, &c.Phone, &c.CodeHash, &c.ExpiresAt, &c.IsUsed,
		&c.Attempts, &c.MaxAttempts, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OtpCode{}, ErrNotFound
	}
	if err != nil {
		return model.OtpCode{}, err
	}
	c.ExpiresAt = c.ExpiresAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// IncrementAttempts records one failed verification against the code.
func (r *OtpRepo) IncrementAttempts(ctx context.Context, id string) error {
	const q = `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = ?`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q, id)
	return err
}

// MarkUsed consumes the code.  Only an unused code can be consumed, so two
// concurrent verifications of the same code cannot both succeed; the loser
// gets ErrStaleState.
func (r *OtpRepo) MarkUsed(ctx context.Context, id string) error {
	const q = `UPDATE otp_codes SET is_used = ? WHERE id = ? AND is_used = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, true, id, false)
	if err != nil {
		return err
	}
	return expectOne(res.RowsAffected())
}

// DeleteExpiredOrUsed removes codes that expired before now or were used.
func (r *OtpRepo) DeleteExpiredOrUsed(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM otp_codes WHERE expires_at < ? OR is_used = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, now.UTC(), true)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
