package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vclink/vclink-bridge/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	CountUsers(ctx context.Context) (int64, error)

	// Vehicle methods
	UpsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	GetVehicle(ctx context.Context, vin string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, limit, offset int) ([]*models.Vehicle, int64, error)
	TouchVehicle(ctx context.Context, vin string, seenAt time.Time) error

	// Telemetry methods
	CreateTelemetrySnapshot(ctx context.Context, snap *models.TelemetrySnapshot) error
	GetLatestTelemetry(ctx context.Context, vin, kind string) (*models.TelemetrySnapshot, error)
	ListTelemetry(ctx context.Context, vin, kind string, limit, offset int) ([]*models.TelemetrySnapshot, int64, error)
	DeleteTelemetryBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Command methods
	CreateCommand(ctx context.Context, cmd *models.Command) error
	GetCommand(ctx context.Context, id uuid.UUID) (*models.Command, error)
	CompleteCommand(ctx context.Context, id uuid.UUID, status models.CommandStatus, errMsg string, result models.Variables, completedAt time.Time) error
	ListCommands(ctx context.Context, vin string, limit, offset int) ([]*models.Command, int64, error)

	// Event log methods
	CreateEventLog(ctx context.Context, event *models.EventLog) error
	ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error)

	// Close the store
	Close() error
}

// EventLogFilters represents filters for event logs
type EventLogFilters struct {
	VIN       *string
	Type      *models.EventType
	Level     *models.EventLevel
	StartTime *time.Time
	EndTime   *time.Time
}
