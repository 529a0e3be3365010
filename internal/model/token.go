package model

import "github.com/google/uuid"

// SessionClaims are the values carried inside a session token.
type SessionClaims struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
}

// TokenManager generates and validates session tokens.
type TokenManager interface {
	GenerateSessionToken(claims SessionClaims) (string, error)
	ParseSessionToken(token string) (SessionClaims, error)
}
