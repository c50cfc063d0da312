package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the ShipXpress DDL. Statements are idempotent so every
// service may run it on startup.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(50) NOT NULL DEFAULT '-',
		address TEXT NOT NULL DEFAULT '-',
		c_type VARCHAR(50) NOT NULL DEFAULT 'Regular',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		vehicle_id SERIAL PRIMARY KEY,
		v_type VARCHAR(50) NOT NULL DEFAULT 'Truck',
		license_plate VARCHAR(50) NOT NULL,
		capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
		status VARCHAR(50) NOT NULL DEFAULT 'Available',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS drivers (
		driver_id SERIAL PRIMARY KEY,
		name_driver VARCHAR(255) NOT NULL,
		phone_driver VARCHAR(50) NOT NULL,
		license_driver VARCHAR(100) NOT NULL,
		vehicle_id INTEGER REFERENCES vehicles(vehicle_id) ON DELETE SET NULL,
		profile_photo TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS shipments (
		shipment_id SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customers(customer_id),
		origin_address TEXT NOT NULL,
		destination_address TEXT NOT NULL,
		s_type VARCHAR(100) NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		status VARCHAR(50) NOT NULL,
		vehicle_id INTEGER REFERENCES vehicles(vehicle_id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tracking_updates (
		tracking_id SERIAL PRIMARY KEY,
		shipment_id INTEGER NOT NULL REFERENCES shipments(shipment_id) ON DELETE CASCADE,
		location TEXT NOT NULL,
		status VARCHAR(50) NOT NULL,
		recipient_name VARCHAR(255),
		recipient_phone VARCHAR(50),
		recipient_address TEXT,
		item_name TEXT,
		barcode VARCHAR(100),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shipments_customer ON shipments(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tracking_shipment ON tracking_updates(shipment_id)`,
}

// Migrate applies Schema in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
