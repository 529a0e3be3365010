package middleware

import (
	"context"
	"net/http"
	"time"

	httpctx "github.com/dtroode/assoc-server/internal/api/http/context"
	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/guard"
	"github.com/dtroode/assoc-server/internal/logger"
)

// Guard admits a request only once its guard reaches Authorized.
type Guard struct {
	guard   *guard.Guard
	timeout time.Duration
	logger  *logger.Logger
}

// NewGuard wraps g. timeout bounds the wait for a terminal decision.
func NewGuard(g *guard.Guard, timeout time.Duration, logger *logger.Logger) *Guard {
	return &Guard{guard: g, timeout: timeout, logger: logger}
}

func (m *Guard) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpctx.IdentityFromContext(r.Context())
		if !ok {
			m.logger.Error("Guard middleware: identity is not mounted",
				"guard", m.guard.Policy().Name,
				"path", r.URL.Path)
			httpx.JSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		inst := m.guard.Mount(r.Context(), id.Context, guard.Target{
			Path:        r.URL.RequestURI(),
			Profiles:    id.Client,
			Permissions: id.Permissions,
		}, nil, nil)

		waitCtx := r.Context()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(waitCtx, m.timeout)
			defer cancel()
		}
		d := inst.Wait(waitCtx)
		inst.Close()

		if d.State != guard.Authorized {
			Deny(w, r, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Deny answers a denied request: a redirect for pages, a JSON error for
// API clients.
func Deny(w http.ResponseWriter, r *http.Request, d guard.Decision) {
	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		return
	}

	status := http.StatusForbidden
	switch d.Code {
	case guard.CodeSessionExpired, guard.CodeSessionRequired, guard.CodeProfileMissing, guard.CodeProfileError:
		status = http.StatusUnauthorized
	}
	httpx.JSON(w, status, httpx.ErrorResponse{
		Error:    d.Reason,
		Code:     d.Code,
		Redirect: d.Redirect,
	})
}
