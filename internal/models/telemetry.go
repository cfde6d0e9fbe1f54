package models

import (
    "time"

    "github.com/google/uuid"
)

// Telemetry snapshot kinds
const (
    TelemetryKindRealtime = "realtime"
    TelemetryKindGPS      = "gps"
)

// Telemetry snapshot sources
const (
    TelemetrySourcePush  = "push"
    TelemetrySourceHTTP  = "http"
    TelemetrySourceCache = "cache"
)

// TelemetrySnapshot represents one decoded vehicle status or position report
type TelemetrySnapshot struct {
    ID            uuid.UUID    `json:"id" db:"id"`
    VIN           string       `json:"vin" db:"vin"`

    // Kind is realtime or gps
    Kind          string       `json:"kind" db:"kind"`

    // Source records how the snapshot reached us
    Source        string       `json:"source" db:"source"`

    // Decrypted payload
    Payload       Variables    `json:"payload" db:"payload"`

    // Timestamp
    CapturedAt    time.Time    `json:"capturedAt" db:"captured_at"`
}

// EnduranceMileage returns the remaining range from a realtime payload
func (t *TelemetrySnapshot) EnduranceMileage() float64 {
    if t.Payload == nil {
        return 0
    }

    switch v := t.Payload["enduranceMileage"].(type) {
    case float64:
        return v
    case int:
        return float64(v)
    }

    return 0
}

// Position returns latitude and longitude from a gps payload
func (t *TelemetrySnapshot) Position() (float64, float64, bool) {
    if t.Payload == nil {
        return 0, 0, false
    }

    lat, latOK := t.Payload["latitude"].(float64)
    lon, lonOK := t.Payload["longitude"].(float64)
    if !latOK || !lonOK {
        return 0, 0, false
    }

    return lat, lon, true
}
