package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"

	"github.com/vclink/vclink-bridge/internal/models"
	"github.com/vclink/vclink-bridge/pkg/crypto"
)

// PostgresStore implements Store interface for PostgreSQL
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// ConfigurePool applies connection pool settings
func (s *PostgresStore) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) {
	s.db.SetMaxOpenConns(maxOpen)
	s.db.SetMaxIdleConns(maxIdle)
	s.db.SetConnMaxLifetime(maxLifetime)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *PostgresStore) BeginTx(ctx context.Context) (Store, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: s.db, tx: tx}, nil
}

// Commit commits the transaction
func (s *PostgresStore) Commit() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Commit()
}

// Rollback rolls back the transaction
func (s *PostgresStore) Rollback() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Rollback()
}

// getDB returns tx if in transaction, otherwise db
func (s *PostgresStore) getDB() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// InitSchema creates the tables when they do not exist yet
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            email TEXT NOT NULL UNIQUE,
            username TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT false,
            is_active BOOLEAN NOT NULL DEFAULT true,
            last_login_at TIMESTAMPTZ,
            settings JSONB
        )`,
		`CREATE TABLE IF NOT EXISTS vehicles (
            vin TEXT PRIMARY KEY,
            brand TEXT NOT NULL DEFAULT '',
            model TEXT NOT NULL DEFAULT '',
            name TEXT NOT NULL DEFAULT '',
            last_seen_at TIMESTAMPTZ,
            first_seen_at TIMESTAMPTZ,
            attributes JSONB,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS telemetry_snapshots (
            id UUID PRIMARY KEY,
            vin TEXT NOT NULL,
            kind TEXT NOT NULL,
            source TEXT NOT NULL,
            payload JSONB,
            captured_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_vin_kind_time
            ON telemetry_snapshots (vin, kind, captured_at DESC)`,
		`CREATE TABLE IF NOT EXISTS commands (
            id UUID PRIMARY KEY,
            vin TEXT NOT NULL,
            action TEXT NOT NULL,
            params JSONB,
            status TEXT NOT NULL,
            error TEXT NOT NULL DEFAULT '',
            result JSONB,
            created_at TIMESTAMPTZ NOT NULL,
            completed_at TIMESTAMPTZ
        )`,
		`CREATE INDEX IF NOT EXISTS idx_commands_vin_time
            ON commands (vin, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS event_logs (
            id UUID PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL,
            vin TEXT,
            type TEXT NOT NULL,
            level TEXT NOT NULL,
            code TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            details JSONB
        )`,
		`CREATE INDEX IF NOT EXISTS idx_event_logs_time
            ON event_logs (created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// SeedAdmin creates the initial admin user when the users table is empty
func (s *PostgresStore) SeedAdmin(ctx context.Context, email, password string) error {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        email,
		Username:     "admin",
		PasswordHash: hash,
		IsAdmin:      true,
		IsActive:     true,
		Settings:     models.Variables{},
	}

	if err := s.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	log.Info().Str("email", email).Msg("seeded initial admin user")
	return nil
}
