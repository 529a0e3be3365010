// Package handler implements the HTTP endpoints of the association site.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	httpctx "github.com/dtroode/assoc-server/internal/api/http/context"
	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

// AdminService edits profiles and the role to permission mapping.
type AdminService interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	SetRole(ctx context.Context, actorID, userID uuid.UUID, role model.Role) (model.Profile, error)
	SetBanned(ctx context.Context, actorID, userID uuid.UUID, banned bool) (model.Profile, error)
	GrantPermission(ctx context.Context, role model.Role, perm model.Permission) error
	RevokePermission(ctx context.Context, role model.Role, perm model.Permission) error
}

// IncidentReader reads archived security incidents.
type IncidentReader interface {
	Get(ctx context.Context, day time.Time, id uuid.UUID) (model.Incident, error)
}

// AuthObserver is told about every sign-in, sign-up and sign-out attempt.
type AuthObserver interface {
	ObserveAuth(operation string, err error)
}

type Handler struct {
	admin     AdminService
	incidents IncidentReader
	observer  AuthObserver
	cookie    httpx.SessionCookie
	logger    *logger.Logger
}

// New creates a Handler. incidents and observer may be nil.
func New(admin AdminService, incidents IncidentReader, observer AuthObserver, cookie httpx.SessionCookie, logger *logger.Logger) *Handler {
	return &Handler{
		admin:     admin,
		incidents: incidents,
		observer:  observer,
		cookie:    cookie,
		logger:    logger,
	}
}

func (h *Handler) observe(operation string, err error) {
	if h.observer != nil {
		h.observer.ObserveAuth(operation, err)
	}
}

// identityOf returns the identity mounted by the identity middleware.
func (h *Handler) identityOf(w http.ResponseWriter, r *http.Request) (*httpctx.Identity, bool) {
	id, ok := httpctx.IdentityFromContext(r.Context())
	if !ok {
		h.logger.Error("Handler: identity is not mounted",
			"path", r.URL.Path)
		httpx.JSONError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return id, true
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, model.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, model.ErrInvalidCredentials.Error())
	case errors.Is(err, model.ErrEmailTaken):
		httpx.JSONError(w, http.StatusConflict, model.ErrEmailTaken.Error())
	case errors.Is(err, model.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("Handler: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpctx.RequestIDFromContext(r.Context()),
			"error", err.Error())
		httpx.JSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
