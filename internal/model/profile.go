package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileStore defines persistence operations for profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (Profile, error)
	UpdateBanned(ctx context.Context, id uuid.UUID, banned bool) (Profile, error)
}

// Profile is the application-level record linked 1:1 to a user.
// ID always equals the owning user's ID.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
