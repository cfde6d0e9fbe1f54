package models

import (
    "time"
)

// Vehicle represents a vehicle bound to the cloud account
type Vehicle struct {
    // Identifiers
    VIN           string     `json:"vin" db:"vin"`

    // Metadata
    Brand         string     `json:"brand,omitempty" db:"brand"`
    Model         string     `json:"model,omitempty" db:"model"`
    Name          string     `json:"name,omitempty" db:"name"`

    // Status
    LastSeenAt    *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
    FirstSeenAt   *time.Time `json:"firstSeenAt,omitempty" db:"first_seen_at"`

    // Raw attributes as returned by the vehicle list endpoint
    Attributes    Variables  `json:"attributes,omitempty" db:"attributes"`

    CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
    UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}
