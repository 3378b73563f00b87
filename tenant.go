package authgate

import "context"

// EnforceTenant verifies that the tenant bound to a validated credential
// matches the tenant a caller is about to act on. The tenant on the
// credential is authoritative; a mismatch means a caller mixed
// credentials across tenants and is always audit-logged because it
// indicates a bug or probing, never normal traffic.
func (e *Engine) EnforceTenant(ctx context.Context, res AuthResult, tenantID string) error {
	if res.TenantID == tenantID {
		return nil
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventTenantMismatch,
		AccountID: res.AccountID,
		TenantID:  res.TenantID,
		SessionID: res.SessionID,
		Success:   false,
		Error:     ErrTenantMismatch.Error(),
		Metadata:  map[string]string{"requested_tenant": tenantID},
	})
	return ErrTenantMismatch
}
