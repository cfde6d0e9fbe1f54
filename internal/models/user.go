package models

import (
    "time"

    "github.com/google/uuid"
)

// User represents a system user
type User struct {
    ID                  uuid.UUID   `json:"id" db:"id"`
    CreatedAt           time.Time   `json:"createdAt" db:"created_at"`
    UpdatedAt           time.Time   `json:"updatedAt" db:"updated_at"`

    Email               string      `json:"email" db:"email"`
    Username            string      `json:"username" db:"username"`

    PasswordHash        string      `json:"-" db:"password_hash"`

    IsAdmin             bool        `json:"isAdmin" db:"is_admin"`
    IsActive            bool        `json:"isActive" db:"is_active"`

    LastLoginAt         *time.Time  `json:"lastLoginAt,omitempty" db:"last_login_at"`

    Settings            Variables   `json:"settings" db:"settings"`
}
