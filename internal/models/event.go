package models

import (
    "time"

    "github.com/google/uuid"
)

// EventLog represents an event log entry
type EventLog struct {
    ID               uuid.UUID   `json:"id" db:"id"`
    CreatedAt        time.Time   `json:"createdAt" db:"created_at"`

    VIN              *string     `json:"vin,omitempty" db:"vin"`

    Type             EventType   `json:"type" db:"type"`
    Level            EventLevel  `json:"level" db:"level"`
    Code             string      `json:"code" db:"code"`
    Description      string      `json:"description" db:"description"`

    Details          Variables   `json:"details,omitempty" db:"details"`
}

// EventType represents event types
type EventType string

const (
    // Session events
    EventTypeSessionLogin     EventType = "SESSION_LOGIN"
    EventTypeSessionExpired   EventType = "SESSION_EXPIRED"
    EventTypeSessionRecovered EventType = "SESSION_RECOVERED"

    // Push channel events
    EventTypePushConnected    EventType = "PUSH_CONNECTED"
    EventTypePushLost         EventType = "PUSH_LOST"
    EventTypePushDropped      EventType = "PUSH_DROPPED"

    // Vehicle events
    EventTypeVehicleSync      EventType = "VEHICLE_SYNC"
    EventTypeTelemetry        EventType = "TELEMETRY"
    EventTypeCommandSent      EventType = "COMMAND_SENT"
    EventTypeCommandResult    EventType = "COMMAND_RESULT"

    // System events
    EventTypeRateLimited      EventType = "RATE_LIMITED"
    EventTypeUnsupported      EventType = "ENDPOINT_UNSUPPORTED"
    EventTypeAPICall          EventType = "API_CALL"
    EventTypeError            EventType = "ERROR"
)

// EventLevel represents event severity levels
type EventLevel string

const (
    EventLevelDebug   EventLevel = "DEBUG"
    EventLevelInfo    EventLevel = "INFO"
    EventLevelWarning EventLevel = "WARNING"
    EventLevelError   EventLevel = "ERROR"
    EventLevelFatal   EventLevel = "FATAL"
)
