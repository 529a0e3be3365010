// Package fixture assembles an in-memory session store backend for tests.
package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dtroode/assoc-server/internal/events"
	"github.com/dtroode/assoc-server/internal/model"
	"github.com/dtroode/assoc-server/internal/password"
	"github.com/dtroode/assoc-server/internal/repository/memory"
	"github.com/dtroode/assoc-server/internal/service"
	"github.com/dtroode/assoc-server/internal/sessionstore"
	"github.com/dtroode/assoc-server/internal/testutil"
	"github.com/dtroode/assoc-server/internal/token"
)

// Password is the password of every user created by CreateUser.
const Password = "correct-horse-battery"

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(model.Role) {}

// Backend is a complete session store running in memory.
type Backend struct {
	Store  *memory.Store
	Bus    *events.LocalBus
	Tokens *token.JWT
	Auth   *service.Auth
	Admin  *service.Admin
}

// NewBackend builds a Backend. invalidator may be nil.
func NewBackend(invalidator service.PermissionInvalidator) *Backend {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}

	store := memory.NewStore()
	bus := events.NewLocalBus()
	tokens := token.NewJWT("test-secret", time.Hour)
	log := testutil.MakeNoopLogger()

	return &Backend{
		Store:  store,
		Bus:    bus,
		Tokens: tokens,
		Auth: service.NewAuth(store.Users(), store.Profiles(), store.RolePermissions(), store.Sessions(), tokens, bus, log, service.AuthParams{
			DefaultRole: model.RoleGuest,
			SessionTTL:  time.Hour,
			Password:    password.Params{Time: 1, MemKiB: 64, Threads: 1, KeyLen: 16, SaltLen: 8},
		}),
		Admin: service.NewAdmin(store.Profiles(), store.RolePermissions(), bus, invalidator, log),
	}
}

// CreateUser signs up email and sets its profile role and suspension.
func (b *Backend) CreateUser(t *testing.T, email string, role model.Role, banned bool) model.User {
	t.Helper()
	ctx := context.Background()

	user, err := b.Auth.SignUp(ctx, email, Password, model.SignUpMetadata{FirstName: "Test", LastName: "User"})
	require.NoError(t, err)

	_, err = b.Store.Profiles().UpdateRole(ctx, user.ID, role)
	require.NoError(t, err)
	_, err = b.Store.Profiles().UpdateBanned(ctx, user.ID, banned)
	require.NoError(t, err)

	return user
}

// SignIn returns a live access token for email.
func (b *Backend) SignIn(t *testing.T, email string) string {
	t.Helper()

	session, err := b.Auth.SignInWithPassword(context.Background(), email, Password)
	require.NoError(t, err)
	return session.AccessToken
}

// Client returns a session store client resuming accessToken.
func (b *Backend) Client(accessToken string) *sessionstore.Client {
	return sessionstore.New(b.Auth, accessToken, testutil.MakeNoopLogger())
}
