package authgate

import "errors"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout window is active.
	// Use [Engine.LockoutRetryAfter] for the retry-after hint.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDisabled is returned for soft-disabled accounts.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountExists signals a username collision within a tenant.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned by account stores for missing rows.
	ErrAccountNotFound = errors.New("account not found")
	// ErrWeakPassword signals a password below the configured entropy policy.
	ErrWeakPassword = errors.New("password below minimum policy")

	// ErrSessionNotFound covers missing, revoked, and expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCreationFailed signals a persistence failure during login.
	ErrSessionCreationFailed = errors.New("session creation failed")

	// ErrTokenExpired is returned for correctly signed but expired access tokens.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed or unverifiable tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrRefreshInvalid is returned when a presented refresh token matches
	// no known record.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse signals that a retired refresh token was presented
	// again. The whole family is revoked before this error is returned.
	ErrRefreshReuse = errors.New("refresh token reuse detected")

	// ErrPermissionDenied is returned for authenticated but unauthorized calls.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTenantMismatch signals that a code path tried to act on a tenant
	// other than the one bound to the authenticated credential. It marks
	// an internal defect and is always audit-logged.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrLoginRateLimited is returned by the login throttle, distinct from
	// the persistent lockout guard.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned by the refresh throttle.
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrHashingTimeout is returned when the hashing gate cannot admit the
	// request before its deadline. Callers must treat this as a failed
	// authentication, never as success.
	ErrHashingTimeout = errors.New("password hashing timed out")

	// ErrStoreUnavailable wraps persistence failures from any backing store.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrEngineNotReady is returned when the engine is missing required
	// dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)
