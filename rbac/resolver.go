package rbac

import (
	"context"
	"crypto/sha256"
	"sort"
)

// Snapshot is the fully resolved permission set for one account in one
// tenant at one point in time. It is immutable after Resolve.
type Snapshot struct {
	perms map[string]struct{}
	hash  [32]byte
}

// Has reports whether the snapshot includes the permission. Anything
// not present is denied.
func (s *Snapshot) Has(permission string) bool {
	if s == nil {
		return false
	}
	_, ok := s.perms[permission]
	return ok
}

// Permissions returns the resolved permission strings in sorted order.
func (s *Snapshot) Permissions() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Hash is a stable SHA-256 digest of the sorted permission set. Two
// accounts with identical effective permissions produce identical
// hashes, so the digest can be embedded in tokens for cheap comparison.
func (s *Snapshot) Hash() [32]byte {
	return s.hash
}

// Resolver computes effective permission sets from a Directory.
type Resolver struct {
	dir Directory
}

// NewResolver returns a Resolver over dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve computes the effective permission set. Precedence, strongest
// first: DENY override, GRANT override, role grant, default deny.
func (r *Resolver) Resolve(ctx context.Context, tenantID, accountID string) (*Snapshot, error) {
	roles, err := r.dir.AccountRoles(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	overrides, err := r.dir.AccountOverrides(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}

	perms := make(map[string]struct{})
	for _, role := range roles {
		for _, p := range role.Permissions {
			perms[p] = struct{}{}
		}
	}

	for _, o := range overrides {
		if o.Effect == EffectGrant {
			perms[o.Permission] = struct{}{}
		}
	}
	// DENY applied last so it beats every grant path
	for _, o := range overrides {
		if o.Effect == EffectDeny {
			delete(perms, o.Permission)
		}
	}

	snap := &Snapshot{perms: perms}
	snap.hash = hashPermissions(snap.Permissions())
	return snap, nil
}

func hashPermissions(sorted []string) [32]byte {
	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
