package models

import (
    "time"
)

// VehicleInfo describes one vehicle from the cloud vehicle list
type VehicleInfo struct {
    VIN   string `json:"vin"`
    Brand string `json:"brand,omitempty"`
    Model string `json:"model,omitempty"`
    Name  string `json:"name,omitempty"`
}

// VehicleListMessage carries the account's vehicle list
type VehicleListMessage struct {
    Vehicles    []VehicleInfo `json:"vehicles"`
    RetrievedAt time.Time     `json:"retrievedAt"`
}

// TelemetryUpdate carries one decoded status or position report
type TelemetryUpdate struct {
    VIN        string                 `json:"vin"`
    Kind       string                 `json:"kind"`
    Source     string                 `json:"source"`
    Payload    map[string]interface{} `json:"payload"`
    CapturedAt time.Time              `json:"capturedAt"`
}

// CommandRequest asks the bridge to execute a remote command
type CommandRequest struct {
    ID         string            `json:"id"`
    VIN        string            `json:"vin"`
    Action     string            `json:"action"`
    Params     map[string]string `json:"params,omitempty"`
    ControlPIN string            `json:"controlPin,omitempty"`
}

// CommandResultMessage reports the outcome of a remote command
type CommandResultMessage struct {
    ID          string                 `json:"id"`
    VIN         string                 `json:"vin"`
    Success     bool                   `json:"success"`
    Error       string                 `json:"error,omitempty"`
    Payload     map[string]interface{} `json:"payload,omitempty"`
    CompletedAt time.Time              `json:"completedAt"`
}

// EventMessage carries a protocol event for the event log
type EventMessage struct {
    Level       string                 `json:"level"`
    Type        string                 `json:"type"`
    Code        string                 `json:"code,omitempty"`
    VIN         string                 `json:"vin,omitempty"`
    Description string                 `json:"description"`
    Details     map[string]interface{} `json:"details,omitempty"`
    At          time.Time              `json:"at"`
}
