package postgres

import (
	"context"
	"fmt"

	"github.com/dtroode/assoc-server/internal/model"
)

var _ model.RolePermissionStore = (*RolePermissionRepository)(nil)

type RolePermissionRepository struct {
	db *Connection
}

func NewRolePermissionRepository(db *Connection) *RolePermissionRepository {
	return &RolePermissionRepository{db: db}
}

// GetByRole returns the permission names assigned to role, empty when none.
func (r *RolePermissionRepository) GetByRole(ctx context.Context, role model.Role) ([]model.Permission, error) {
	const query = `SELECT permission FROM role_permissions WHERE role = $1 ORDER BY permission`

	rows, err := r.db.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	defer rows.Close()

	perms := []model.Permission{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan role permission: %w", err)
		}
		perms = append(perms, model.Permission(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role permissions: %w", err)
	}

	return perms, nil
}

func (r *RolePermissionRepository) Grant(ctx context.Context, role model.Role, permission model.Permission) error {
	const query = `
        INSERT INTO role_permissions (role, permission) VALUES ($1, $2)
        ON CONFLICT (role, permission) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, string(role), string(permission)); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

func (r *RolePermissionRepository) Revoke(ctx context.Context, role model.Role, permission model.Permission) error {
	const query = `DELETE FROM role_permissions WHERE role = $1 AND permission = $2`

	if _, err := r.db.Exec(ctx, query, string(role), string(permission)); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}
