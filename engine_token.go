package authgate

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/jswierad/authgate/internal"
	"github.com/jswierad/authgate/internal/rate"
	"github.com/jswierad/authgate/refresh"
)

// VerifyAccessToken verifies a bearer access token. Verification is
// stateless and idempotent; it touches no storage.
func (e *Engine) VerifyAccessToken(_ context.Context, token string) (AuthResult, error) {
	start := time.Now()

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		e.metrics.Inc(MetricTokenVerifyFailure)
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return AuthResult{}, ErrTokenExpired
		}
		return AuthResult{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	result := AuthResult{
		AccountID: claims.Subject,
		TenantID:  claims.TenantID,
	}
	if len(claims.PermHash) == len(result.PermissionHash) {
		copy(result.PermissionHash[:], claims.PermHash)
	}

	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	return result, nil
}

// Refresh presents a refresh token and, if it is the active member of
// its family, returns a fresh access token plus the successor refresh
// token. Presenting a retired or expired token revokes the entire
// family and every session of the affected account before the error is
// returned.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenCredential, error) {
	secret, err := internal.DecodeRefreshSecret(refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return TokenCredential{}, ErrRefreshInvalid
	}

	// Throttle keyed on the presented token hash so retry storms on a
	// single token are bounded before any rotation work happens.
	hash := internal.HashRefreshSecret(secret)
	if err := e.rateLimiter.CheckRefresh(ctx, hex.EncodeToString(hash[:])); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricRefreshRateLimited)
			return TokenCredential{}, ErrRefreshRateLimited
		}
		return TokenCredential{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result, err := e.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		return TokenCredential{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch result.Outcome {
	case refresh.OutcomeRotated:
		return e.finishRotation(ctx, result)

	case refresh.OutcomeReuse, refresh.OutcomeExpired:
		// An expired token in hand is indistinguishable from a replayed
		// one; both take the breach path.
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.handleSuspectedBreach(ctx, result)
		return TokenCredential{}, ErrRefreshReuse

	default: // OutcomeNotFound
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventRefresh,
			AccountID: result.AccountID,
			TenantID:  result.TenantID,
			Success:   false,
			Error:     ErrRefreshInvalid.Error(),
		})
		return TokenCredential{}, ErrRefreshInvalid
	}
}

// finishRotation mints the access token for a successful rotation. The
// permission set is resolved fresh so revocations since the last
// refresh take effect here.
func (e *Engine) finishRotation(ctx context.Context, result *refresh.RotateResult) (TokenCredential, error) {
	snap, err := e.resolver.Resolve(ctx, result.TenantID, result.AccountID)
	if err != nil {
		return TokenCredential{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	permHash := snap.Hash()
	accessToken, err := e.jwtManager.CreateAccess(result.AccountID, result.TenantID, permHash[:])
	if err != nil {
		return TokenCredential{}, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.metrics.Inc(MetricTokenIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventRefresh,
		AccountID: result.AccountID,
		TenantID:  result.TenantID,
		Success:   true,
		Metadata:  map[string]string{"family_id": result.FamilyID},
	})

	return TokenCredential{
		AccessToken:  accessToken,
		RefreshToken: result.Token,
		ExpiresIn:    e.jwtManager.AccessTTL(),
	}, nil
}

// handleSuspectedBreach contains a refresh-token reuse: the rotation
// script already revoked the family; here every session of the account
// is torn down as well, and the incident is audit-logged.
func (e *Engine) handleSuspectedBreach(ctx context.Context, result *refresh.RotateResult) {
	metadata := map[string]string{"family_id": result.FamilyID}

	if result.AccountID != "" {
		if err := e.sessions.DeleteAllForAccount(ctx, result.TenantID, result.AccountID); err != nil {
			metadata["session_revocation_error"] = err.Error()
		}
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventBreachSuspected,
		AccountID: result.AccountID,
		TenantID:  result.TenantID,
		Success:   false,
		Error:     ErrRefreshReuse.Error(),
		Metadata:  metadata,
	})
}

// RevokeFamily revokes every token in a refresh family. Used by
// administrative tooling when a credential leak is reported.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if err := e.refresh.RevokeFamily(ctx, familyID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
