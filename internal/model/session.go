package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated session issued by the session store.
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Email       string
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// SessionRecordStore persists issued sessions.
type SessionRecordStore interface {
	Create(ctx context.Context, record SessionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (SessionRecord, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// SessionRecord is the stored state of a session.
type SessionRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// AuthEvent names a change in authentication state.
type AuthEvent string

const (
	AuthEventSignedIn    AuthEvent = "SIGNED_IN"
	AuthEventSignedOut   AuthEvent = "SIGNED_OUT"
	AuthEventUserUpdated AuthEvent = "USER_UPDATED"
	AuthEventExpired     AuthEvent = "TOKEN_EXPIRED"
)

// AuthStateListener receives auth events. session is nil after sign-out or expiry.
type AuthStateListener func(event AuthEvent, session *Session)

// SessionStore is the capability contract consumed by the identity layer.
// One SessionStore instance represents one client holding at most one session.
type SessionStore interface {
	GetCurrentSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (User, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(listener AuthStateListener) (unsubscribe func())
	FetchProfile(ctx context.Context, userID uuid.UUID) (Profile, error)
	FetchRolePermissions(ctx context.Context, role Role) ([]Permission, error)
}

// Result is the non-throwing outcome of sign-in, sign-up and sign-out.
type Result struct {
	OK  bool
	Err error
}

// Success returns a successful Result.
func Success() Result {
	return Result{OK: true}
}

// Failure returns a failed Result carrying err.
func Failure(err error) Result {
	return Result{Err: err}
}
