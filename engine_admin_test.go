package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestDisableAccountRevokesCredentials(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")
	ctx := context.Background()

	sessionCred, err := engine.LoginSession(ctx, testTenant, "alice", testPassword)
	if err != nil {
		t.Fatalf("LoginSession failed: %v", err)
	}
	tokenCred, err := engine.LoginToken(ctx, testTenant, "alice", testPassword)
	if err != nil {
		t.Fatalf("LoginToken failed: %v", err)
	}

	if err := engine.DisableAccount(ctx, testTenant, rec.AccountID); err != nil {
		t.Fatalf("DisableAccount failed: %v", err)
	}

	if _, err := engine.ValidateSession(ctx, testTenant, sessionCred.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session revoked, got %v", err)
	}
	if _, err := engine.Refresh(ctx, tokenCred.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected refresh family revoked, got %v", err)
	}
	if _, err := engine.LoginSession(ctx, testTenant, "alice", testPassword); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled on login, got %v", err)
	}
}

func TestEnableAccountRestoresLogin(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")
	ctx := context.Background()

	if err := engine.DisableAccount(ctx, testTenant, rec.AccountID); err != nil {
		t.Fatalf("DisableAccount failed: %v", err)
	}
	if err := engine.EnableAccount(ctx, testTenant, rec.AccountID); err != nil {
		t.Fatalf("EnableAccount failed: %v", err)
	}

	if _, err := engine.LoginSession(ctx, testTenant, "alice", testPassword); err != nil {
		t.Fatalf("login after enable failed: %v", err)
	}
}

func TestLockAccountHoldsUntilEnabled(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")
	ctx := context.Background()

	if err := engine.LockAccount(ctx, testTenant, rec.AccountID); err != nil {
		t.Fatalf("LockAccount failed: %v", err)
	}

	if _, err := engine.LoginSession(ctx, testTenant, "alice", testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	// UnlockAccount clears only the automatic lockout; an admin lock is
	// a lifecycle state and needs EnableAccount.
	if err := engine.UnlockAccount(ctx, testTenant, rec.AccountID); err != nil {
		t.Fatalf("UnlockAccount failed: %v", err)
	}
	if _, err := engine.LoginSession(ctx, testTenant, "alice", testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected admin lock to survive unlock, got %v", err)
	}

	if err := engine.EnableAccount(ctx, testTenant, rec.AccountID); err != nil {
		t.Fatalf("EnableAccount failed: %v", err)
	}
	if _, err := engine.LoginSession(ctx, testTenant, "alice", testPassword); err != nil {
		t.Fatalf("login after enable failed: %v", err)
	}
}

func TestAdminOperationsEnforceTenantOwnership(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")
	ctx := context.Background()

	if err := engine.DisableAccount(ctx, testOtherTenant, rec.AccountID); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch on disable, got %v", err)
	}
	if err := engine.LockAccount(ctx, testOtherTenant, rec.AccountID); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch on lock, got %v", err)
	}
	if err := engine.EnableAccount(ctx, testOtherTenant, rec.AccountID); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch on enable, got %v", err)
	}
}

func TestAdminOperationsUnknownAccount(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())

	if err := engine.DisableAccount(context.Background(), testTenant, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLockoutRetryAfterZeroWhenUnlocked(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")

	retryAfter, err := engine.LockoutRetryAfter(context.Background(), testTenant, rec.AccountID)
	if err != nil {
		t.Fatalf("LockoutRetryAfter failed: %v", err)
	}
	if retryAfter != 0 {
		t.Fatalf("expected zero retry-after, got %v", retryAfter)
	}
}
