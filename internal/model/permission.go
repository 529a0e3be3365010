package model

import "context"

// Permission is a fine-grained named capability assignable to roles.
type Permission string

const (
	PermCreateEvent       Permission = "create_event"
	PermPublishNews       Permission = "publish_news"
	PermModerateComments  Permission = "moderate_comments"
	PermManageMembers     Permission = "manage_members"
	PermManageUsers       Permission = "manage_users"
	PermViewDonations     Permission = "view_donations"
	PermViewMemberContent Permission = "view_member_content"
)

// RolePermissionStore reads and edits the role to permission mapping.
type RolePermissionStore interface {
	GetByRole(ctx context.Context, role Role) ([]Permission, error)
	Grant(ctx context.Context, role Role, permission Permission) error
	Revoke(ctx context.Context, role Role, permission Permission) error
}

// DefaultRolePermissions is the mapping seeded into a fresh store.
// Admin holds every permission implicitly and has no rows.
func DefaultRolePermissions() map[Role][]Permission {
	return map[Role][]Permission{
		RoleEditor:    {PermCreateEvent, PermModerateComments, PermPublishNews, PermViewMemberContent},
		RoleModerator: {PermModerateComments, PermViewMemberContent},
		RoleMember:    {PermViewMemberContent},
	}
}
