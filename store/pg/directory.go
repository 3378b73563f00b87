package pg

import (
	"context"
	"fmt"

	"github.com/jswierad/authgate/rbac"
)

// AccountRoles implements rbac.Directory. Roles and their permissions
// are joined in one query and grouped in memory.
func (s *Store) AccountRoles(ctx context.Context, tenantID, accountID string) ([]rbac.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.role_name, p.permission
		FROM role_assignments a
		JOIN role_permissions p
		  ON p.tenant_id = a.tenant_id AND p.role_name = a.role_name
		WHERE a.tenant_id = $1 AND a.account_id = $2
		ORDER BY a.role_name, p.permission`,
		tenantID, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var (
		roles   []rbac.Role
		current *rbac.Role
	)
	for rows.Next() {
		var roleName, permission string
		if err := rows.Scan(&roleName, &permission); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		if current == nil || current.Name != roleName {
			roles = append(roles, rbac.Role{TenantID: tenantID, Name: roleName})
			current = &roles[len(roles)-1]
		}
		current.Permissions = append(current.Permissions, permission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// AccountOverrides implements rbac.Directory.
func (s *Store) AccountOverrides(ctx context.Context, tenantID, accountID string) ([]rbac.Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permission, effect
		FROM permission_overrides
		WHERE tenant_id = $1 AND account_id = $2
		ORDER BY permission`,
		tenantID, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []rbac.Override
	for rows.Next() {
		var permission, effect string
		if err := rows.Scan(&permission, &effect); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides = append(overrides, rbac.Override{
			AccountID:  accountID,
			TenantID:   tenantID,
			Permission: permission,
			Effect:     rbac.Effect(effect),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}
