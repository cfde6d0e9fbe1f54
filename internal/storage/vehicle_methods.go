package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/vclink/vclink-bridge/internal/models"
)

// ========== Vehicle Methods ==========

// UpsertVehicle inserts a vehicle or refreshes its metadata. The cloud
// vehicle list is authoritative, so rows are keyed by VIN.
func (s *PostgresStore) UpsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	now := time.Now()
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = now
	}
	vehicle.UpdatedAt = now

	query := `
        INSERT INTO vehicles (
            vin, brand, model, name, attributes, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7
        )
        ON CONFLICT (vin) DO UPDATE SET
            brand = EXCLUDED.brand,
            model = EXCLUDED.model,
            name = EXCLUDED.name,
            attributes = EXCLUDED.attributes,
            updated_at = EXCLUDED.updated_at`

	_, err := s.getDB().ExecContext(ctx, query,
		vehicle.VIN, vehicle.Brand, vehicle.Model, vehicle.Name,
		vehicle.Attributes, vehicle.CreatedAt, vehicle.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetVehicle gets a vehicle by VIN
func (s *PostgresStore) GetVehicle(ctx context.Context, vin string) (*models.Vehicle, error) {
	query := `
        SELECT vin, brand, model, name, last_seen_at, first_seen_at,
               attributes, created_at, updated_at
        FROM vehicles
        WHERE vin = $1`

	vehicle := &models.Vehicle{}
	err := s.getDB().QueryRowContext(ctx, query, vin).Scan(
		&vehicle.VIN, &vehicle.Brand, &vehicle.Model, &vehicle.Name,
		&vehicle.LastSeenAt, &vehicle.FirstSeenAt, &vehicle.Attributes,
		&vehicle.CreatedAt, &vehicle.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return vehicle, nil
}

// ListVehicles lists vehicles
func (s *PostgresStore) ListVehicles(ctx context.Context, limit, offset int) ([]*models.Vehicle, int64, error) {
	// Get count
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vehicles",
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	// Get rows
	query := `
        SELECT vin, brand, model, name, last_seen_at, first_seen_at,
               attributes, created_at, updated_at
        FROM vehicles
        ORDER BY vin ASC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		vehicle := &models.Vehicle{}

		err := rows.Scan(
			&vehicle.VIN, &vehicle.Brand, &vehicle.Model, &vehicle.Name,
			&vehicle.LastSeenAt, &vehicle.FirstSeenAt, &vehicle.Attributes,
			&vehicle.CreatedAt, &vehicle.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		vehicles = append(vehicles, vehicle)
	}

	return vehicles, count, nil
}

// TouchVehicle records that telemetry arrived for a vehicle
func (s *PostgresStore) TouchVehicle(ctx context.Context, vin string, seenAt time.Time) error {
	query := `
        UPDATE vehicles SET
            last_seen_at = $2,
            first_seen_at = COALESCE(first_seen_at, $2)
        WHERE vin = $1`

	result, err := s.getDB().ExecContext(ctx, query, vin, seenAt)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
