package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValidateSession checks a browser session and returns the identity
// bound to it. On success the sliding window is extended, capped by the
// absolute lifetime. Missing, expired, and revoked sessions are
// indistinguishable to the caller.
func (e *Engine) ValidateSession(ctx context.Context, tenantID, sessionID string) (AuthResult, error) {
	start := time.Now()

	sess, err := e.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return AuthResult{}, ErrSessionNotFound
		}
		return AuthResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// The session key embeds the tenant, so a cross-tenant session ID
	// cannot resolve; this guard only catches storage corruption.
	if sess.TenantID != tenantID {
		return AuthResult{}, ErrSessionNotFound
	}

	e.metrics.Observe(MetricValidateLatency, time.Since(start))

	return AuthResult{
		AccountID:      sess.AccountID,
		TenantID:       sess.TenantID,
		SessionID:      sess.SessionID,
		PermissionHash: sess.PermHash,
	}, nil
}

// Logout invalidates a single session. Idempotent: logging out an
// unknown session succeeds.
func (e *Engine) Logout(ctx context.Context, tenantID, sessionID string) error {
	if err := e.sessions.Delete(ctx, tenantID, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionInvalidated)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogout,
		TenantID:  tenantID,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// RevokeAllSessions invalidates every session and refresh family for an
// account. Session revocation takes effect on the next validation;
// outstanding access tokens expire within their TTL.
func (e *Engine) RevokeAllSessions(ctx context.Context, tenantID, accountID string) error {
	if err := e.revokeAllCredentials(ctx, tenantID, accountID); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogoutAll,
		AccountID: accountID,
		TenantID:  tenantID,
		Success:   true,
	})
	return nil
}

// GetSession returns a read-only view of a session without extending
// its lifetime.
func (e *Engine) GetSession(ctx context.Context, tenantID, sessionID string) (SessionInfo, error) {
	sess, err := e.sessions.GetReadOnly(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionInfo{}, ErrSessionNotFound
		}
		return SessionInfo{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return sessionInfoOf(sess.SessionID, sess.AccountID, sess.TenantID, sess.CreatedAt, sess.LastSeenAt, sess.ExpiresAt), nil
}

// ListSessions returns read-only views of every live session for an
// account in a tenant.
func (e *Engine) ListSessions(ctx context.Context, tenantID, accountID string) ([]SessionInfo, error) {
	ids, err := e.sessions.ActiveSessionIDs(ctx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		sess, err := e.sessions.GetReadOnly(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // index entry outlived the session key
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		infos = append(infos, sessionInfoOf(sess.SessionID, sess.AccountID, sess.TenantID, sess.CreatedAt, sess.LastSeenAt, sess.ExpiresAt))
	}
	return infos, nil
}

// ActiveSessionCount returns the number of tracked sessions for an
// account in a tenant.
func (e *Engine) ActiveSessionCount(ctx context.Context, tenantID, accountID string) (int, error) {
	count, err := e.sessions.ActiveSessionCount(ctx, tenantID, accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func sessionInfoOf(sessionID, accountID, tenantID string, createdAt, lastSeenAt, expiresAt int64) SessionInfo {
	return SessionInfo{
		SessionID:  sessionID,
		AccountID:  accountID,
		TenantID:   tenantID,
		CreatedAt:  time.Unix(createdAt, 0),
		LastSeenAt: time.Unix(lastSeenAt, 0),
		ExpiresAt:  time.Unix(expiresAt, 0),
	}
}
