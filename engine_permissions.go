package authgate

import (
	"context"
	"fmt"

	"github.com/jswierad/authgate/rbac"
)

// Check authorizes a single permission for a validated identity. The
// permission set is resolved fresh from the directory, so a DENY
// override added after token issuance takes effect immediately; the
// PermissionHash in the credential is never trusted for authorization.
// Precedence, strongest first: DENY override, GRANT override, role
// grant, default deny.
func (e *Engine) Check(ctx context.Context, res AuthResult, permission string) error {
	snap, err := e.resolver.Resolve(ctx, res.TenantID, res.AccountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if snap.Has(permission) {
		return nil
	}

	e.metrics.Inc(MetricPermissionDenied)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventPermissionDenied,
		AccountID: res.AccountID,
		TenantID:  res.TenantID,
		SessionID: res.SessionID,
		Success:   false,
		Error:     ErrPermissionDenied.Error(),
		Metadata:  map[string]string{"permission": permission},
	})
	return ErrPermissionDenied
}

// PermissionSnapshot resolves the current effective permission set for
// an account. The snapshot's Hash matches the permission_hash embedded
// in tokens issued at the same directory state.
func (e *Engine) PermissionSnapshot(ctx context.Context, tenantID, accountID string) (*rbac.Snapshot, error) {
	snap, err := e.resolver.Resolve(ctx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return snap, nil
}
