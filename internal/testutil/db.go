// Package testutil builds throwaway SQLite stores for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/database"
)

// Fixture identifies the salon and services seeded by NewDB.
type Fixture struct {
	SalonID           uint64
	ServiceID         uint64
	InactiveServiceID uint64
	OtherSalonID      uint64
	ServicePriceCents uint32
}

// NewDB opens a migrated SQLite database in a temporary directory and
// seeds one salon with an active and an inactive service, plus a second
// salon with no services.  The database is closed when the test ends.
func NewDB(t testing.TB) (*sql.DB, Fixture) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := Fixture{ServicePriceCents: 12000}
	f.SalonID = insert(t, db, `INSERT INTO salons (name) VALUES (?)`, "Studio Noa")
	f.OtherSalonID = insert(t, db, `INSERT INTO salons (name) VALUES (?)`, "Other Salon")
	f.ServiceID = insert(t, db,
		`INSERT INTO salon_services (salon_id, name, price_cents, duration_minutes, is_active) VALUES (?, ?, ?, ?, ?)`,
		f.SalonID, "Haircut", f.ServicePriceCents, 45, true)
	f.InactiveServiceID = insert(t, db,
		`INSERT INTO salon_services (salon_id, name, price_cents, duration_minutes, is_active) VALUES (?, ?, ?, ?, ?)`,
		f.SalonID, "Perm", 30000, 120, false)
	return db, f
}

func insert(t testing.TB, db *sql.DB, q string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(q, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}
