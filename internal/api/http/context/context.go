// Package context carries per-request identity through http.Request contexts.
package context

import (
	"context"

	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/permission"
	"github.com/dtroode/assoc-server/internal/sessionstore"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	identityKey  contextKey = "identity"
)

// Identity is everything the identity middleware mounted for one request.
type Identity struct {
	Client      *sessionstore.Client
	Context     *identity.Context
	Permissions *permission.Resolver
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity mounted for the request, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
