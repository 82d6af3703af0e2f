package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS trips (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	company_id VARCHAR(64) NOT NULL,
	route_from VARCHAR(120) NOT NULL,
	route_to VARCHAR(120) NOT NULL,
	departure_at DATETIME(6) NOT NULL,
	fare BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL,
	driver_id VARCHAR(64) NULL,
	vehicle_id VARCHAR(64) NOT NULL DEFAULT '',
	seat_count INT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	KEY idx_trips_route (route_from, route_to, departure_at),
	KEY idx_trips_driver (driver_id, status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, `
CREATE TABLE IF NOT EXISTS trip_seats (
	trip_id VARCHAR(36) NOT NULL,
	seat_number VARCHAR(8) NOT NULL,
	position INT NOT NULL,
	state VARCHAR(8) NOT NULL,
	hold_id VARCHAR(36) NULL,
	held_until DATETIME(6) NULL,
	booking_id VARCHAR(36) NULL,
	PRIMARY KEY (trip_id, seat_number),
	KEY idx_seats_hold (hold_id),
	KEY idx_seats_booking (booking_id),
	CONSTRAINT fk_seats_trip FOREIGN KEY (trip_id) REFERENCES trips (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, `
CREATE TABLE IF NOT EXISTS seat_holds (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	trip_id VARCHAR(36) NOT NULL,
	seat_numbers VARCHAR(512) NOT NULL,
	owner_id VARCHAR(64) NOT NULL,
	owner_token_hash CHAR(64) NOT NULL,
	status VARCHAR(16) NOT NULL,
	booking_id VARCHAR(36) NULL,
	expires_at DATETIME(6) NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	KEY idx_holds_status_expires (status, expires_at),
	KEY idx_holds_trip (trip_id, status),
	CONSTRAINT fk_holds_trip FOREIGN KEY (trip_id) REFERENCES trips (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, `
CREATE TABLE IF NOT EXISTS bookings (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	trip_id VARCHAR(36) NOT NULL,
	owner_id VARCHAR(64) NOT NULL,
	seat_numbers VARCHAR(512) NOT NULL,
	passengers TEXT NOT NULL,
	contact_name VARCHAR(120) NOT NULL,
	contact_phone VARCHAR(20) NOT NULL,
	contact_email VARCHAR(160) NOT NULL DEFAULT '',
	total_amount BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL,
	payment_status VARCHAR(16) NOT NULL,
	booking_time DATETIME(6) NOT NULL,
	cancel_reason VARCHAR(255) NOT NULL DEFAULT '',
	updated_at DATETIME(6) NOT NULL,
	KEY idx_bookings_trip (trip_id),
	KEY idx_bookings_unpaid (status, payment_status, booking_time),
	CONSTRAINT fk_bookings_trip FOREIGN KEY (trip_id) REFERENCES trips (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// InitSchema creates the core tables when missing.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("could not initialize schema: %w", err)
		}
	}
	return nil
}
