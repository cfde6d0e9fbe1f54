package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vclink/vclink-bridge/internal/models"
)

// ========== Telemetry Methods ==========

// CreateTelemetrySnapshot stores one decoded status or position report
func (s *PostgresStore) CreateTelemetrySnapshot(ctx context.Context, snap *models.TelemetrySnapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}

	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}

	query := `
        INSERT INTO telemetry_snapshots (
            id, vin, kind, source, payload, captured_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.getDB().ExecContext(ctx, query,
		snap.ID, snap.VIN, snap.Kind, snap.Source, snap.Payload, snap.CapturedAt,
	)

	return err
}

// GetLatestTelemetry gets the most recent snapshot of one kind for a vehicle
func (s *PostgresStore) GetLatestTelemetry(ctx context.Context, vin, kind string) (*models.TelemetrySnapshot, error) {
	query := `
        SELECT id, vin, kind, source, payload, captured_at
        FROM telemetry_snapshots
        WHERE vin = $1 AND kind = $2
        ORDER BY captured_at DESC
        LIMIT 1`

	snap := &models.TelemetrySnapshot{}
	err := s.getDB().QueryRowContext(ctx, query, vin, kind).Scan(
		&snap.ID, &snap.VIN, &snap.Kind, &snap.Source, &snap.Payload, &snap.CapturedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return snap, nil
}

// ListTelemetry lists snapshots for a vehicle. An empty kind matches all kinds.
func (s *PostgresStore) ListTelemetry(ctx context.Context, vin, kind string, limit, offset int) ([]*models.TelemetrySnapshot, int64, error) {
	// Get count
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM telemetry_snapshots WHERE vin = $1 AND ($2 = '' OR kind = $2)",
		vin, kind,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	// Get rows
	query := `
        SELECT id, vin, kind, source, payload, captured_at
        FROM telemetry_snapshots
        WHERE vin = $1 AND ($2 = '' OR kind = $2)
        ORDER BY captured_at DESC
        LIMIT $3 OFFSET $4`

	rows, err := s.getDB().QueryContext(ctx, query, vin, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var snaps []*models.TelemetrySnapshot
	for rows.Next() {
		snap := &models.TelemetrySnapshot{}

		err := rows.Scan(
			&snap.ID, &snap.VIN, &snap.Kind, &snap.Source, &snap.Payload, &snap.CapturedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		snaps = append(snaps, snap)
	}

	return snaps, count, nil
}

// DeleteTelemetryBefore removes snapshots older than the cutoff
func (s *PostgresStore) DeleteTelemetryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.getDB().ExecContext(ctx,
		"DELETE FROM telemetry_snapshots WHERE captured_at < $1", cutoff,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
