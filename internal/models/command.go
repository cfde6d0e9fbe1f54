package models

import (
    "time"

    "github.com/google/uuid"
)

// CommandStatus represents the lifecycle state of a remote command
type CommandStatus string

// Command statuses
const (
    CommandStatusPending   CommandStatus = "PENDING"
    CommandStatusSent      CommandStatus = "SENT"
    CommandStatusSucceeded CommandStatus = "SUCCEEDED"
    CommandStatusFailed    CommandStatus = "FAILED"
)

// Command represents a remote control command issued against a vehicle
type Command struct {
    ID              uuid.UUID      `json:"id" db:"id"`
    VIN             string         `json:"vin" db:"vin"`

    // Action is the operation name, for example lock or unlock
    Action          string         `json:"action" db:"action"`
    Params          Variables      `json:"params,omitempty" db:"params"`

    // State
    Status          CommandStatus  `json:"status" db:"status"`
    Error           string         `json:"error,omitempty" db:"error"`

    // Result payload reported by the vehicle
    Result          Variables      `json:"result,omitempty" db:"result"`

    // Timing
    CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
    CompletedAt     *time.Time     `json:"completedAt,omitempty" db:"completed_at"`
}

// IsTerminal reports whether the command reached a final state
func (c *Command) IsTerminal() bool {
    return c.Status == CommandStatusSucceeded || c.Status == CommandStatusFailed
}
