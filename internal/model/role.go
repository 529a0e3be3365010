package model

// Role is a named user category controlling the default authorization level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEditor    Role = "editor"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
	RoleGuest     Role = "guest"
)

var roleRanks = map[Role]int{
	RoleAdmin:     4,
	RoleEditor:    3,
	RoleModerator: 2,
	RoleMember:    1,
	RoleGuest:     0,
}

// RoleRank returns the fixed rank of a role. Unknown roles rank as 0.
func RoleRank(role Role) int {
	return roleRanks[role]
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role Role) bool {
	_, ok := roleRanks[role]
	return ok
}

// Roles returns all known roles ordered from the most privileged.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleModerator, RoleMember, RoleGuest}
}
