package authgate

import (
	"context"
	"time"

	internalaudit "github.com/jswierad/authgate/internal/audit"
)

func newAuditEntryID(now time.Time) string {
	return internalaudit.NewEntryID(now)
}

// Audit event types emitted by the engine. Names are stable; consumers
// filter on them.
const (
	EventRegister         = "account.register"
	EventPasswordChange   = "account.password_change"
	EventAccountDisabled  = "account.disabled"
	EventAccountEnabled   = "account.enabled"
	EventAccountUnlocked  = "account.unlocked"
	EventLogin            = "auth.login"
	EventLogout           = "auth.logout"
	EventLogoutAll        = "auth.logout_all"
	EventLockout          = "auth.lockout"
	EventRefresh          = "auth.refresh"
	EventBreachSuspected  = "auth.breach_suspected"
	EventPermissionDenied = "authz.denied"
	EventTenantMismatch   = "authz.tenant_mismatch"
)

// emitAudit stamps and forwards an event to the dispatcher. Events are
// dropped silently when auditing is disabled.
func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}

	now := time.Now()
	event.EntryID = newAuditEntryID(now)
	event.OccurredAt = now
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}

	e.audit.Emit(ctx, event)
}

// AuditDropped reports audit events discarded due to backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}
