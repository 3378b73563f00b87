package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Register creates a new account in the tenant. The username is unique
// within the tenant only; the same username may exist in other tenants.
func (e *Engine) Register(ctx context.Context, tenantID, username, plaintext string) (AccountRecord, error) {
	username = strings.TrimSpace(username)
	if tenantID == "" || username == "" {
		return AccountRecord{}, ErrInvalidCredentials
	}

	if err := e.policy.Check(plaintext); err != nil {
		return AccountRecord{}, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := e.hashPassword(ctx, plaintext)
	if err != nil {
		return AccountRecord{}, err
	}

	now := time.Now()
	rec := AccountRecord{
		AccountID:    uuid.NewString(),
		TenantID:     tenantID,
		Username:     username,
		PasswordHash: hash,
		Status:       AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.accounts.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditEvent{
				EventType: EventRegister,
				TenantID:  tenantID,
				Success:   false,
				Error:     ErrAccountExists.Error(),
			})
			return AccountRecord{}, ErrAccountExists
		}
		return AccountRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventRegister,
		AccountID: rec.AccountID,
		TenantID:  tenantID,
		Success:   true,
	})

	rec.PasswordHash = ""
	return rec, nil
}

// ChangePassword verifies the current password, applies the entropy
// policy to the replacement, stores the new hash, and revokes every
// session and refresh family belonging to the account. Existing access
// tokens remain valid until their short TTL runs out.
func (e *Engine) ChangePassword(ctx context.Context, tenantID, accountID, oldPassword, newPassword string) error {
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
	if rec.Status == AccountDisabled {
		return ErrAccountDisabled
	}

	match, err := e.verifyPassword(ctx, rec.PasswordHash, oldPassword)
	if err != nil {
		return err
	}
	if !match {
		e.metrics.Inc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventPasswordChange,
			AccountID: accountID,
			TenantID:  tenantID,
			Success:   false,
			Error:     ErrInvalidCredentials.Error(),
		})
		return ErrInvalidCredentials
	}

	if err := e.policy.Check(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := e.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}

	if err := e.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.revokeAllCredentials(ctx, tenantID, accountID); err != nil {
		return err
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventPasswordChange,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   true,
	})

	return nil
}

// revokeAllCredentials tears down every session and refresh family for
// the account. Used by password change, disable, and logout-everywhere.
func (e *Engine) revokeAllCredentials(ctx context.Context, tenantID, accountID string) error {
	if err := e.sessions.DeleteAllForAccount(ctx, tenantID, accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.refresh.RevokeAllForAccount(ctx, tenantID, accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
