package postgres

import (
	"database/sql"
	"fmt"

	"github.com/dalsjofors/hyrservice/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id SERIAL PRIMARY KEY,
			booking_reference VARCHAR(32) UNIQUE,
			trailer_type VARCHAR(16) NOT NULL CHECK (trailer_type IN ('OPEN_RACK','COVERED')),
			rental_kind VARCHAR(16) NOT NULL CHECK (rental_kind IN ('SHORT','FULL_DAY')),
			start_at TIMESTAMP NOT NULL,
			end_at TIMESTAMP NOT NULL,
			price INTEGER NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','CONFIRMED','CANCELLED')),
			payment_reference VARCHAR(64),
			customer_phone VARCHAR(32),
			expires_at TIMESTAMP NOT NULL,
			confirmed_sent_at TIMESTAMP,
			cancelled_sent_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS trailer_blocks (
			id SERIAL PRIMARY KEY,
			trailer_type VARCHAR(16) NOT NULL CHECK (trailer_type IN ('OPEN_RACK','COVERED')),
			start_at TIMESTAMP NOT NULL,
			end_at TIMESTAMP NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS test_bookings (
			id SERIAL PRIMARY KEY,
			trailer_type VARCHAR(16) NOT NULL,
			rental_kind VARCHAR(16) NOT NULL,
			price INTEGER NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','PAID')),
			sms_target VARCHAR(32),
			promote_due_at TIMESTAMP NOT NULL,
			delete_due_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Schema versioning for future migrations
		`CREATE TABLE IF NOT EXISTS meta (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_type_window ON bookings(trailer_type, start_at, end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_expires_at ON bookings(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_payment_reference ON bookings(payment_reference)`,
		`CREATE INDEX IF NOT EXISTS idx_trailer_blocks_type_window ON trailer_blocks(trailer_type, start_at, end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_test_bookings_promote_due ON test_bookings(status, promote_due_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
