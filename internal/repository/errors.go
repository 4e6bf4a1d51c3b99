// Package repository defines the SQL data access layer and the error
// values shared across repositories.  Every method accepts a context and
// joins the transaction carried by it (see database.WithTx), so services
// can compose several repository calls atomically.  Queries use only "?"
// placeholders and explicit timestamps so that they run unchanged on MySQL
// and SQLite.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned when a slot claim collides with an existing
// active claim.  Services translate it into a "slot taken" conflict.
var ErrSlotTaken = errors.New("slot taken")

// ErrSlotContended is returned when the database aborted a claim because
// a concurrent transaction was claiming the same slot.  It matches
// ErrSlotTaken, but the enclosing transaction is already rolled back and
// must not issue further statements.
var ErrSlotContended = fmt.Errorf("%w: concurrent claim aborted", ErrSlotTaken)

// ErrStaleState is returned by guarded updates when the row no longer
// matches the expected state (for example a hold that stopped being
// RESERVED between read and write).  The enclosing transaction should be
// rolled back.
var ErrStaleState = errors.New("stale state")

// ErrConflict is returned when an insert violates a uniqueness rule other
// than the slot claim.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a unique or primary key violation on
// either supported driver.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isLockConflict reports whether err is a MySQL deadlock (1213) or lock
// wait timeout (1205).  InnoDB raises these when two transactions insert
// into the same index gap; the transaction has been rolled back.
func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205)
}

// expectOne converts a zero rows-affected result into ErrStaleState.
func expectOne(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}
