package storage

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/vclink/vclink-bridge/internal/models"
)

// ========== Command Methods ==========

// CreateCommand creates a new command record
func (s *PostgresStore) CreateCommand(ctx context.Context, cmd *models.Command) error {
    if cmd.ID == uuid.Nil {
        cmd.ID = uuid.New()
    }

    if cmd.CreatedAt.IsZero() {
        cmd.CreatedAt = time.Now()
    }

    if cmd.Status == "" {
        cmd.Status = models.CommandStatusPending
    }

    query := `
        INSERT INTO commands (
            id, vin, action, params, status, error, result, created_at, completed_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

    _, err := s.getDB().ExecContext(ctx, query,
        cmd.ID, cmd.VIN, cmd.Action, cmd.Params, cmd.Status,
        cmd.Error, cmd.Result, cmd.CreatedAt, cmd.CompletedAt,
    )

    if err != nil {
        if strings.Contains(err.Error(), "duplicate key") {
            return ErrDuplicateKey
        }
        return err
    }

    return nil
}

// GetCommand gets a command by ID
func (s *PostgresStore) GetCommand(ctx context.Context, id uuid.UUID) (*models.Command, error) {
    query := `
        SELECT id, vin, action, params, status, error, result, created_at, completed_at
        FROM commands
        WHERE id = $1`

    cmd := &models.Command{}
    err := s.getDB().QueryRowContext(ctx, query, id).Scan(
        &cmd.ID, &cmd.VIN, &cmd.Action, &cmd.Params, &cmd.Status,
        &cmd.Error, &cmd.Result, &cmd.CreatedAt, &cmd.CompletedAt,
    )

    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }

    return cmd, err
}

// CompleteCommand records the terminal state of a command
func (s *PostgresStore) CompleteCommand(ctx context.Context, id uuid.UUID, status models.CommandStatus, errMsg string, result models.Variables, completedAt time.Time) error {
    query := `
        UPDATE commands SET
            status = $2, error = $3, result = $4, completed_at = $5
        WHERE id = $1`

    res, err := s.getDB().ExecContext(ctx, query, id, status, errMsg, result, completedAt)
    if err != nil {
        return err
    }

    rows, err := res.RowsAffected()
    if err != nil {
        return err
    }

    if rows == 0 {
        return ErrNotFound
    }

    return nil
}

// ListCommands lists commands, optionally filtered by VIN
func (s *PostgresStore) ListCommands(ctx context.Context, vin string, limit, offset int) ([]*models.Command, int64, error) {
    // Get count
    var count int64
    err := s.getDB().QueryRowContext(ctx,
        "SELECT COUNT(*) FROM commands WHERE ($1 = '' OR vin = $1)", vin,
    ).Scan(&count)
    if err != nil {
        return nil, 0, err
    }

    // Get rows
    query := `
        SELECT id, vin, action, params, status, error, result, created_at, completed_at
        FROM commands
        WHERE ($1 = '' OR vin = $1)
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

    rows, err := s.getDB().QueryContext(ctx, query, vin, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    var cmds []*models.Command
    for rows.Next() {
        cmd := &models.Command{}

        err := rows.Scan(
            &cmd.ID, &cmd.VIN, &cmd.Action, &cmd.Params, &cmd.Status,
            &cmd.Error, &cmd.Result, &cmd.CreatedAt, &cmd.CompletedAt,
        )
        if err != nil {
            return nil, 0, err
        }

        cmds = append(cmds, cmd)
    }

    return cmds, count, nil
}
