package handler

import (
	"net/http"

	"github.com/dtroode/assoc-server/internal/api/http/httpx"
	"github.com/dtroode/assoc-server/internal/model"
)

type area struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// Index lists the areas of the site.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"name": "association",
		"areas": []area{
			{Path: "/member/dashboard", Title: "Member area"},
			{Path: "/moderator/queue", Title: "Moderation"},
			{Path: "/admin/users", Title: "Administration"},
		},
	})
}

// MemberDashboard is the landing page of the member area.
func (h *Handler) MemberDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return
	}
	s := id.Context.State()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"profile":             s.Profile,
		"view_member_content": id.Permissions.HasPermission(model.PermViewMemberContent),
	})
}

// ModeratorQueue lists what awaits moderation.
func (h *Handler) ModeratorQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityOf(w, r)
	if !ok {
		return
	}
	var moderator string
	if p := id.Context.State().Profile; p != nil {
		moderator = p.Email
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"moderator":    moderator,
		"can_moderate": id.Permissions.HasAnyPermission([]model.Permission{model.PermModerateComments}),
		"can_publish":  id.Permissions.HasPermission(model.PermPublishNews),
		"items":        []any{},
	})
}
