package rbac

import (
	"context"
	"sync"
)

// Effect is the direction of a per-account permission override.
type Effect string

const (
	EffectGrant Effect = "GRANT"
	EffectDeny  Effect = "DENY"
)

// Role is a named bundle of permission strings scoped to a tenant.
// Permission strings are opaque to this package; convention is
// "resource:action".
type Role struct {
	TenantID    string
	Name        string
	Permissions []string
}

// Override adjusts a single permission for a single account. DENY
// always wins over any grant, from roles or from other overrides.
type Override struct {
	AccountID  string
	TenantID   string
	Permission string
	Effect     Effect
}

// Directory supplies role assignments and overrides for accounts.
// Implementations must scope every lookup by tenant.
type Directory interface {
	AccountRoles(ctx context.Context, tenantID, accountID string) ([]Role, error)
	AccountOverrides(ctx context.Context, tenantID, accountID string) ([]Override, error)
}

// MemoryDirectory is an in-process Directory for tests, examples, and
// single-node deployments that configure roles statically.
type MemoryDirectory struct {
	mu          sync.RWMutex
	roles       map[string]map[string]Role     // tenant -> role name -> role
	assignments map[string]map[string][]string // tenant -> account -> role names
	overrides   map[string]map[string][]Override
}

// NewMemoryDirectory returns an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		roles:       make(map[string]map[string]Role),
		assignments: make(map[string]map[string][]string),
		overrides:   make(map[string]map[string][]Override),
	}
}

// PutRole creates or replaces a role within its tenant.
func (d *MemoryDirectory) PutRole(role Role) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tenantRoles, ok := d.roles[role.TenantID]
	if !ok {
		tenantRoles = make(map[string]Role)
		d.roles[role.TenantID] = tenantRoles
	}
	tenantRoles[role.Name] = role
}

// Assign attaches a role to an account. Unknown role names are ignored
// at resolve time rather than rejected here, matching directory
// backends that load lazily.
func (d *MemoryDirectory) Assign(tenantID, accountID, roleName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tenantAssignments, ok := d.assignments[tenantID]
	if !ok {
		tenantAssignments = make(map[string][]string)
		d.assignments[tenantID] = tenantAssignments
	}
	for _, existing := range tenantAssignments[accountID] {
		if existing == roleName {
			return
		}
	}
	tenantAssignments[accountID] = append(tenantAssignments[accountID], roleName)
}

// Unassign detaches a role from an account.
func (d *MemoryDirectory) Unassign(tenantID, accountID, roleName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	assigned := d.assignments[tenantID][accountID]
	for i, existing := range assigned {
		if existing == roleName {
			d.assignments[tenantID][accountID] = append(assigned[:i], assigned[i+1:]...)
			return
		}
	}
}

// PutOverride records a per-account override, replacing any previous
// override for the same permission.
func (d *MemoryDirectory) PutOverride(o Override) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tenantOverrides, ok := d.overrides[o.TenantID]
	if !ok {
		tenantOverrides = make(map[string][]Override)
		d.overrides[o.TenantID] = tenantOverrides
	}

	existing := tenantOverrides[o.AccountID]
	for i, prev := range existing {
		if prev.Permission == o.Permission {
			existing[i] = o
			return
		}
	}
	tenantOverrides[o.AccountID] = append(existing, o)
}

// AccountRoles implements Directory.
func (d *MemoryDirectory) AccountRoles(_ context.Context, tenantID, accountID string) ([]Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := d.assignments[tenantID][accountID]
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		if role, ok := d.roles[tenantID][name]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// AccountOverrides implements Directory.
func (d *MemoryDirectory) AccountOverrides(_ context.Context, tenantID, accountID string) ([]Override, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	src := d.overrides[tenantID][accountID]
	out := make([]Override, len(src))
	copy(out, src)
	return out, nil
}
