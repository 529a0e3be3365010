package middleware

import (
	"net/http"

	httpctx "github.com/dtroode/assoc-server/internal/api/http/context"
	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/identity"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/permission"
	"github.com/dtroode/assoc-server/internal/sessionstore"
)

// Identity mounts an identity context and a permission resolver for the
// session cookie of every request and tears both down afterwards.
type Identity struct {
	backend     sessionstore.Backend
	permissions permission.Fetcher
	cookie      httpx.SessionCookie
	logger      *logger.Logger
}

func NewIdentity(backend sessionstore.Backend, permissions permission.Fetcher, cookie httpx.SessionCookie, logger *logger.Logger) *Identity {
	return &Identity{
		backend:     backend,
		permissions: permissions,
		cookie:      cookie,
		logger:      logger,
	}
}

func (m *Identity) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := m.cookie.Read(r)

		client := sessionstore.New(m.backend, token, m.logger)
		defer client.Close()

		idc := identity.New(client, m.logger)
		idc.Mount(ctx)
		defer idc.Unmount()

		resolver := permission.NewResolver(m.permissions, m.logger)
		stop := resolver.Follow(ctx, idc)
		defer stop()

		// The store drops tokens of dead sessions while mounting.
		if token != "" && client.AccessToken() == "" {
			m.cookie.Clear(w)
		}

		ctx = httpctx.WithIdentity(ctx, &httpctx.Identity{
			Client:      client,
			Context:     idc,
			Permissions: resolver,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
