package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/model"
)

const incidentDateLayout = "2006-01-02"

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", model.ErrInvalidInput, name, err)
	}
	return id, nil
}

// actor returns the signed-in user performing an admin action.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return uuid.Nil, false
	}
	s := id.Context.State()
	if s.User == nil {
		httpx.JSONError(w, http.StatusUnauthorized, "no session")
		return uuid.Nil, false
	}
	return s.User.ID, true
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.admin.ListProfiles(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	userID, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	profile, err := h.admin.SetRole(r.Context(), actorID, userID, req.Role)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) SetBanned(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	userID, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req struct {
		Banned bool `json:"banned"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	profile, err := h.admin.SetBanned(r.Context(), actorID, userID, req.Banned)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	role := model.Role(chi.URLParam(r, "role"))
	perm := model.Permission(chi.URLParam(r, "permission"))

	if err := h.admin.GrantPermission(r.Context(), role, perm); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	role := model.Role(chi.URLParam(r, "role"))
	perm := model.Permission(chi.URLParam(r, "permission"))

	if err := h.admin.RevokePermission(r.Context(), role, perm); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetIncident returns one archived incident. Without an archive every
// incident is unknown.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	if h.incidents == nil {
		httpx.JSONError(w, http.StatusNotFound, "incident archive is disabled")
		return
	}

	day, err := time.Parse(incidentDateLayout, chi.URLParam(r, "date"))
	if err != nil {
		h.handleError(w, r, fmt.Errorf("%w: date: %v", model.ErrInvalidInput, err))
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	incident, err := h.incidents.Get(r.Context(), day, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, incident)
}
