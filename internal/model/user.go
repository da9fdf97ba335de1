package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Slug         string
	DateOfBirth  string
	Gender       string
	Phone        string
	Address      string
	RoleID       uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// AuthUser is the identity attached to a request after the access token
// has been verified.
type AuthUser struct {
	ID    uuid.UUID
	Email string
	Role  string
}
