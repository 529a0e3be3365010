package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User, profile Profile) (User, error)
}

// User represents an account known to the session store.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SignUpMetadata is attached to a sign-up request and used to provision the profile.
type SignUpMetadata struct {
	FirstName string
	LastName  string
}
