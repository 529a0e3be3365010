package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/assoc-server/internal/mocks"
	"github.com/dtroode/assoc-server/internal/model"
)

type fakeIncidents map[string]model.Incident

func (f fakeIncidents) Get(_ context.Context, day time.Time, id uuid.UUID) (model.Incident, error) {
	inc, ok := f[day.Format(incidentDateLayout)+"/"+id.String()]
	if !ok {
		return model.Incident{}, model.ErrNotFound
	}
	return inc, nil
}

func signedInAdmin(t *testing.T, e *env) (uuid.UUID, string) {
	t.Helper()
	user := e.backend.CreateUser(t, "admin@example.org", model.RoleAdmin, false)
	return user.ID, e.backend.SignIn(t, "admin@example.org")
}

func TestHandler_ListUsers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(*mocks.AdminService)
		wantStatus int
	}{
		{
			name: "ok",
			setup: func(m *mocks.AdminService) {
				m.On("ListProfiles", mock.Anything).Return([]model.Profile{{Email: "a@example.org"}, {Email: "b@example.org"}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "store failure",
			setup: func(m *mocks.AdminService) {
				m.On("ListProfiles", mock.Anything).Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			admin := mocks.NewAdminService(t)
			tt.setup(admin)
			e := newEnv(t, admin, nil)
			_, token := signedInAdmin(t, e)

			rr := e.do(request{method: http.MethodGet, path: "/admin/users", token: token})
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				body := decode[map[string][]model.Profile](t, rr)
				assert.Len(t, body["profiles"], 2)
			} else {
				assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
			}
		})
	}
}

func TestHandler_SetRole(t *testing.T) {
	t.Parallel()

	target := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       string
		setup      func(m *mocks.AdminService, actor uuid.UUID)
		wantStatus int
	}{
		{
			name: "promoted",
			path: "/admin/users/" + target.String() + "/role",
			body: `{"role":"editor"}`,
			setup: func(m *mocks.AdminService, actor uuid.UUID) {
				m.On("SetRole", mock.Anything, actor, target, model.RoleEditor).
					Return(model.Profile{ID: target, Role: model.RoleEditor}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed id",
			path:       "/admin/users/not-a-uuid/role",
			body:       `{"role":"editor"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			path:       "/admin/users/" + target.String() + "/role",
			body:       `{"role":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "rejected by service",
			path: "/admin/users/" + target.String() + "/role",
			body: `{"role":"overlord"}`,
			setup: func(m *mocks.AdminService, actor uuid.UUID) {
				m.On("SetRole", mock.Anything, actor, target, model.Role("overlord")).
					Return(model.Profile{}, fmt.Errorf("%w: unknown role", model.ErrInvalidInput))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown user",
			path: "/admin/users/" + target.String() + "/role",
			body: `{"role":"member"}`,
			setup: func(m *mocks.AdminService, actor uuid.UUID) {
				m.On("SetRole", mock.Anything, actor, target, model.RoleMember).
					Return(model.Profile{}, model.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			admin := mocks.NewAdminService(t)
			e := newEnv(t, admin, nil)
			actor, token := signedInAdmin(t, e)
			if tt.setup != nil {
				tt.setup(admin, actor)
			}

			rr := e.do(request{method: http.MethodPost, path: tt.path, token: token, json: tt.body})
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, model.RoleEditor, decode[model.Profile](t, rr).Role)
			}
		})
	}
}

func TestHandler_SetBanned(t *testing.T) {
	t.Parallel()

	admin := mocks.NewAdminService(t)
	e := newEnv(t, admin, nil)
	actor, token := signedInAdmin(t, e)
	target := uuid.New()

	admin.On("SetBanned", mock.Anything, actor, target, true).
		Return(model.Profile{ID: target, Banned: true}, nil).Once()
	admin.On("SetBanned", mock.Anything, actor, actor, true).
		Return(model.Profile{}, fmt.Errorf("%w: cannot suspend yourself", model.ErrInvalidInput)).Once()

	rr := e.do(request{method: http.MethodPost, path: "/admin/users/" + target.String() + "/ban", token: token, json: `{"banned":true}`})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[model.Profile](t, rr).Banned)

	rr = e.do(request{method: http.MethodPost, path: "/admin/users/" + actor.String() + "/ban", token: token, json: `{"banned":true}`})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_SetBanned_WithoutSession(t *testing.T) {
	t.Parallel()

	e := newEnv(t, mocks.NewAdminService(t), nil)

	rr := e.do(request{method: http.MethodPost, path: "/admin/users/" + uuid.NewString() + "/ban", json: `{"banned":true}`})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_RolePermissions(t *testing.T) {
	t.Parallel()

	admin := mocks.NewAdminService(t)
	e := newEnv(t, admin, nil)
	_, token := signedInAdmin(t, e)

	admin.On("GrantPermission", mock.Anything, model.RoleMember, model.PermCreateEvent).Return(nil).Once()
	admin.On("RevokePermission", mock.Anything, model.RoleMember, model.PermCreateEvent).Return(nil).Once()
	admin.On("GrantPermission", mock.Anything, model.RoleAdmin, model.PermCreateEvent).
		Return(fmt.Errorf("%w: admin holds every permission", model.ErrInvalidInput)).Once()

	rr := e.do(request{method: http.MethodPost, path: "/admin/roles/member/permissions/create_event", token: token})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = e.do(request{method: http.MethodDelete, path: "/admin/roles/member/permissions/create_event", token: token})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = e.do(request{method: http.MethodPost, path: "/admin/roles/admin/permissions/create_event", token: token})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_GetIncident(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	incident := model.Incident{
		ID:         id,
		Guard:      "admin",
		Reason:     "inconsistency detected",
		UserID:     uuid.New(),
		Path:       "/admin/users",
		OccurredAt: time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	archive := fakeIncidents{"2026-03-09/" + id.String(): incident}

	tests := []struct {
		name       string
		incidents  IncidentReader
		path       string
		wantStatus int
	}{
		{name: "found", incidents: archive, path: "/admin/incidents/2026-03-09/" + id.String(), wantStatus: http.StatusOK},
		{name: "other day", incidents: archive, path: "/admin/incidents/2026-03-10/" + id.String(), wantStatus: http.StatusNotFound},
		{name: "bad date", incidents: archive, path: "/admin/incidents/09-03-2026/" + id.String(), wantStatus: http.StatusBadRequest},
		{name: "bad id", incidents: archive, path: "/admin/incidents/2026-03-09/nope", wantStatus: http.StatusBadRequest},
		{name: "archive disabled", path: "/admin/incidents/2026-03-09/" + id.String(), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t, nil, tt.incidents)
			rr := e.do(request{method: http.MethodGet, path: tt.path})

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				got := decode[model.Incident](t, rr)
				assert.Equal(t, incident.ID, got.ID)
				assert.Equal(t, incident.Reason, got.Reason)
				assert.True(t, incident.OccurredAt.Equal(got.OccurredAt))
			}
		})
	}
}
