package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DisableAccount soft-disables an account and revokes all of its
// sessions and refresh families. Accounts are never deleted.
func (e *Engine) DisableAccount(ctx context.Context, tenantID, accountID string) error {
	if err := e.setStatus(ctx, tenantID, accountID, AccountDisabled); err != nil {
		return err
	}
	if err := e.revokeAllCredentials(ctx, tenantID, accountID); err != nil {
		return err
	}

	e.metrics.Inc(MetricAccountDisabled)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventAccountDisabled,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   true,
	})
	return nil
}

// EnableAccount restores a disabled or administratively locked account
// to active. Credentials revoked while disabled stay revoked.
func (e *Engine) EnableAccount(ctx context.Context, tenantID, accountID string) error {
	if err := e.setStatus(ctx, tenantID, accountID, AccountActive); err != nil {
		return err
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventAccountEnabled,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   true,
	})
	return nil
}

// LockAccount administratively locks an account and revokes its
// credentials. Unlike the automatic lockout, an administrative lock has
// no expiry; it holds until EnableAccount.
func (e *Engine) LockAccount(ctx context.Context, tenantID, accountID string) error {
	if err := e.setStatus(ctx, tenantID, accountID, AccountLocked); err != nil {
		return err
	}
	if err := e.revokeAllCredentials(ctx, tenantID, accountID); err != nil {
		return err
	}

	e.metrics.Inc(MetricAccountLocked)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLockout,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   true,
		Metadata:  map[string]string{"source": "admin"},
	})
	return nil
}

// UnlockAccount clears the automatic lockout state for an account.
func (e *Engine) UnlockAccount(ctx context.Context, tenantID, accountID string) error {
	if err := e.lockout.Reset(ctx, tenantID, accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventAccountUnlocked,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   true,
	})
	return nil
}

// LockoutRetryAfter returns the remaining automatic lockout duration
// for an account, or zero when it is not locked out.
func (e *Engine) LockoutRetryAfter(ctx context.Context, tenantID, accountID string) (time.Duration, error) {
	locked, retryAfter, err := e.lockout.CheckLocked(ctx, tenantID, accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !locked {
		return 0, nil
	}
	return retryAfter, nil
}

// setStatus loads the account, verifies tenant ownership, and writes
// the new lifecycle state.
func (e *Engine) setStatus(ctx context.Context, tenantID, accountID string, status AccountStatus) error {
	rec, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.TenantID != tenantID {
		e.emitAudit(ctx, AuditEvent{
			EventType: EventTenantMismatch,
			AccountID: accountID,
			TenantID:  rec.TenantID,
			Success:   false,
			Error:     ErrTenantMismatch.Error(),
			Metadata:  map[string]string{"requested_tenant": tenantID},
		})
		return ErrTenantMismatch
	}

	if err := e.accounts.UpdateStatus(ctx, accountID, status); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
