package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Slot exclusivity lives in slot_claims: its primary key is the slot
// identity, so two active claims on one slot cannot coexist.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS salons (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(191) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS salon_services (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		salon_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(191) NOT NULL,
		price_cents INT UNSIGNED NOT NULL DEFAULT 0,
		duration_minutes INT UNSIGNED NOT NULL DEFAULT 30,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		CONSTRAINT fk_services_salon FOREIGN KEY (salon_id) REFERENCES salons(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		salon_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(191) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_customers_salon_phone (salon_id, phone)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		salon_id BIGINT UNSIGNED NOT NULL,
		service_id BIGINT UNSIGNED NOT NULL,
		customer_id BIGINT UNSIGNED NOT NULL,
		slot_date CHAR(10) NOT NULL,
		slot_time CHAR(5) NOT NULL,
		status VARCHAR(16) NOT NULL,
		total_price_cents INT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_bookings_slot (salon_id, service_id, slot_date, slot_time, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_holds (
		id CHAR(36) PRIMARY KEY,
		salon_id BIGINT UNSIGNED NOT NULL,
		service_id BIGINT UNSIGNED NOT NULL,
		slot_date CHAR(10) NOT NULL,
		slot_time CHAR(5) NOT NULL,
		customer_name VARCHAR(191) NULL,
		customer_phone VARCHAR(20) NULL,
		status VARCHAR(16) NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_holds_status_expiry (status, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS slot_claims (
		salon_id BIGINT UNSIGNED NOT NULL,
		service_id BIGINT UNSIGNED NOT NULL,
		slot_date CHAR(10) NOT NULL,
		slot_time CHAR(5) NOT NULL,
		hold_id CHAR(36) NOT NULL,
		booking_id BIGINT UNSIGNED NULL,
		expires_at DATETIME NULL,
		PRIMARY KEY (salon_id, service_id, slot_date, slot_time),
		KEY idx_claims_hold (hold_id),
		KEY idx_claims_booking (booking_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS otp_codes (
		id CHAR(36) PRIMARY KEY,
		phone VARCHAR(20) NOT NULL,
		code_hash VARCHAR(100) NOT NULL,
		expires_at DATETIME NOT NULL,
		is_used TINYINT(1) NOT NULL DEFAULT 0,
		attempts INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL DEFAULT 5,
		created_at DATETIME NOT NULL,
		KEY idx_otp_phone_created (phone, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS otp_sends (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		phone VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_otp_sends_phone_created (phone, created_at),
		KEY idx_otp_sends_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS manage_tokens (
		id CHAR(36) PRIMARY KEY,
		booking_id BIGINT UNSIGNED NOT NULL,
		token VARCHAR(512) NOT NULL,
		expires_at DATETIME NOT NULL,
		is_used TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_manage_tokens_token (token),
		KEY idx_manage_tokens_expiry (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS salons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS salon_services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		salon_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		price_cents INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 30,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		FOREIGN KEY (salon_id) REFERENCES salons(id)
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		salon_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (salon_id, phone)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		salon_id INTEGER NOT NULL,
		service_id INTEGER NOT NULL,
		customer_id INTEGER NOT NULL,
		slot_date TEXT NOT NULL,
		slot_time TEXT NOT NULL,
		status TEXT NOT NULL,
		total_price_cents INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS booking_holds (
		id TEXT PRIMARY KEY,
		salon_id INTEGER NOT NULL,
		service_id INTEGER NOT NULL,
		slot_date TEXT NOT NULL,
		slot_time TEXT NOT NULL,
		customer_name TEXT,
		customer_phone TEXT,
		status TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS slot_claims (
		salon_id INTEGER NOT NULL,
		service_id INTEGER NOT NULL,
		slot_date TEXT NOT NULL,
		slot_time TEXT NOT NULL,
		hold_id TEXT NOT NULL,
		booking_id INTEGER,
		expires_at DATETIME,
		PRIMARY KEY (salon_id, service_id, slot_date, slot_time)
	)`,
	`CREATE TABLE IF NOT EXISTS otp_codes (
		id TEXT PRIMARY KEY,
		phone TEXT NOT NULL,
		code_hash TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		is_used BOOLEAN NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS otp_sends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS manage_tokens (
		id TEXT PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		is_used BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(salon_id, service_id, slot_date, slot_time, status)`,
	`CREATE INDEX IF NOT EXISTS idx_holds_status_expiry ON booking_holds(status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_claims_hold ON slot_claims(hold_id)`,
	`CREATE INDEX IF NOT EXISTS idx_claims_booking ON slot_claims(booking_id)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_phone_created ON otp_codes(phone, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_sends_phone_created ON otp_sends(phone, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_sends_created ON otp_sends(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_manage_tokens_expiry ON manage_tokens(expires_at)`,
}

// Migrate creates the tables for the given driver when they do not exist.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	queries := mysqlSchema
	if driver == "sqlite3" {
		queries = sqliteSchema
	}
	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
