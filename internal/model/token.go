package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the single active refresh session for a user. Only the
// sha256 of the raw credential is stored; the raw value is handed to the
// client once at login.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
