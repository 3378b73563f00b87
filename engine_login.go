package authgate

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jswierad/authgate/internal"
	"github.com/jswierad/authgate/internal/rate"
	"github.com/jswierad/authgate/rbac"
	"github.com/jswierad/authgate/session"
)

// authenticate runs the shared credential check: throttle, account
// lookup, lockout gate, status gate, peppered argon2 verification, and
// failure accounting. Unknown usernames burn a dummy verification so
// timing does not reveal account existence.
func (e *Engine) authenticate(ctx context.Context, tenantID, username, plaintext string) (AccountRecord, *rbac.Snapshot, error) {
	ip := clientIPFromContext(ctx)

	if err := e.rateLimiter.CheckLogin(ctx, tenantID, username, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditEvent{
				EventType: EventLogin,
				TenantID:  tenantID,
				Success:   false,
				Error:     ErrLoginRateLimited.Error(),
			})
			return AccountRecord{}, nil, ErrLoginRateLimited
		}
		return AccountRecord{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := e.accounts.GetByUsername(ctx, tenantID, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// burn comparable hashing time, then account the failure
			_, _ = e.verifyPassword(ctx, e.dummyHash, plaintext)
			_ = e.rateLimiter.IncrementLogin(ctx, tenantID, username, ip)
			e.metrics.Inc(MetricLoginFailure)
			return AccountRecord{}, nil, ErrInvalidCredentials
		}
		return AccountRecord{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	locked, _, err := e.lockout.CheckLocked(ctx, tenantID, rec.AccountID)
	if err != nil {
		return AccountRecord{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if locked || rec.Status == AccountLocked {
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLogin,
			AccountID: rec.AccountID,
			TenantID:  tenantID,
			Success:   false,
			Error:     ErrAccountLocked.Error(),
		})
		return AccountRecord{}, nil, ErrAccountLocked
	}
	if rec.Status == AccountDisabled {
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLogin,
			AccountID: rec.AccountID,
			TenantID:  tenantID,
			Success:   false,
			Error:     ErrAccountDisabled.Error(),
		})
		return AccountRecord{}, nil, ErrAccountDisabled
	}

	match, err := e.verifyPassword(ctx, rec.PasswordHash, plaintext)
	if err != nil {
		return AccountRecord{}, nil, err
	}
	if !match {
		return AccountRecord{}, nil, e.recordLoginFailure(ctx, tenantID, username, ip, rec.AccountID)
	}

	if err := e.lockout.RecordSuccess(ctx, tenantID, rec.AccountID); err != nil {
		return AccountRecord{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	_ = e.rateLimiter.ResetLogin(ctx, tenantID, username, ip)

	e.maybeUpgradeHash(ctx, rec, plaintext)

	snap, err := e.resolver.Resolve(ctx, tenantID, rec.AccountID)
	if err != nil {
		return AccountRecord{}, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return rec, snap, nil
}

// recordLoginFailure accounts a wrong password: throttle counter,
// lockout counter, metrics, audit. Returns the caller-facing error.
func (e *Engine) recordLoginFailure(ctx context.Context, tenantID, username, ip, accountID string) error {
	_ = e.rateLimiter.IncrementLogin(ctx, tenantID, username, ip)

	nowLocked, backoff, err := e.lockout.RecordFailure(ctx, tenantID, accountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricLoginFailure)

	if nowLocked {
		e.metrics.Inc(MetricLockoutTriggered)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLockout,
			AccountID: accountID,
			TenantID:  tenantID,
			Success:   false,
			Error:     ErrAccountLocked.Error(),
			Metadata:  map[string]string{"retry_after": backoff.String()},
		})
		return ErrAccountLocked
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogin,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   false,
		Error:     ErrInvalidCredentials.Error(),
	})
	return ErrInvalidCredentials
}

// maybeUpgradeHash transparently rehashes on login when cost parameters
// have been raised. Best effort; login already succeeded.
func (e *Engine) maybeUpgradeHash(ctx context.Context, rec AccountRecord, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	needs, err := e.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := e.hashPassword(ctx, plaintext)
	if err != nil {
		return
	}
	_ = e.accounts.UpdatePasswordHash(ctx, rec.AccountID, hash)
}

// LoginSession authenticates a browser client and creates a server-side
// session. The returned session ID is the only credential material the
// client holds.
func (e *Engine) LoginSession(ctx context.Context, tenantID, username, plaintext string) (SessionCredential, error) {
	rec, snap, err := e.authenticate(ctx, tenantID, username, plaintext)
	if err != nil {
		return SessionCredential{}, err
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return SessionCredential{}, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	sess := &session.Session{
		SessionID: sid.String(),
		AccountID: rec.AccountID,
		TenantID:  tenantID,
		PermHash:  snap.Hash(),
	}
	if fp := deviceFingerprintFromContext(ctx); fp != "" {
		sess.DeviceHash = internal.HashFingerprint(fp)
	}

	if err := e.sessions.Save(ctx, sess); err != nil {
		return SessionCredential{}, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionCreated)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogin,
		AccountID: rec.AccountID,
		TenantID:  tenantID,
		SessionID: sess.SessionID,
		Success:   true,
		Metadata:  map[string]string{"mode": "session"},
	})

	return SessionCredential{
		SessionID: sess.SessionID,
		AccountID: rec.AccountID,
		TenantID:  tenantID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// LoginToken authenticates an API or mobile client and issues an access
// token plus the first refresh token of a new family.
func (e *Engine) LoginToken(ctx context.Context, tenantID, username, plaintext string) (TokenCredential, error) {
	rec, snap, err := e.authenticate(ctx, tenantID, username, plaintext)
	if err != nil {
		return TokenCredential{}, err
	}

	var deviceHash string
	if fp := deviceFingerprintFromContext(ctx); fp != "" {
		digest := internal.HashFingerprint(fp)
		deviceHash = hex.EncodeToString(digest[:])
	}

	refreshToken, familyID, err := e.refresh.IssueInitial(ctx, rec.AccountID, tenantID, deviceHash)
	if err != nil {
		return TokenCredential{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	permHash := snap.Hash()
	accessToken, err := e.jwtManager.CreateAccess(rec.AccountID, tenantID, permHash[:])
	if err != nil {
		return TokenCredential{}, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricTokenIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogin,
		AccountID: rec.AccountID,
		TenantID:  tenantID,
		Success:   true,
		Metadata:  map[string]string{"mode": "token", "family_id": familyID},
	})

	return TokenCredential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    e.jwtManager.AccessTTL(),
	}, nil
}
