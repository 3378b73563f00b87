package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterSuccess(t *testing.T) {
	engine, accounts, _, _ := newTestEngine(t, testConfig())

	rec, err := engine.Register(context.Background(), testTenant, "alice", testPassword)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if rec.AccountID == "" {
		t.Fatal("expected account id")
	}
	if rec.Status != AccountActive {
		t.Fatalf("expected active status, got %d", rec.Status)
	}
	if rec.PasswordHash != "" {
		t.Fatal("returned record must not carry the password hash")
	}

	stored := accounts.storedHash(rec.AccountID)
	if stored == "" || stored == testPassword {
		t.Fatal("expected stored password to be hashed")
	}
	ok, err := engine.hasher.Verify(testPassword, stored)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	registerTestAccount(t, engine, testTenant, "alice")

	_, err := engine.Register(context.Background(), testTenant, "alice", testPassword)
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricRegisterDuplicate]; got != 1 {
		t.Fatalf("expected duplicate counted once, got %d", got)
	}
}

func TestRegisterSameUsernameAcrossTenants(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	registerTestAccount(t, engine, testTenant, "alice")

	if _, err := engine.Register(context.Background(), testOtherTenant, "alice", testPassword); err != nil {
		t.Fatalf("expected cross-tenant registration to succeed, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())

	_, err := engine.Register(context.Background(), testTenant, "alice", "short")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterRejectsEmptyInputs(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())

	if _, err := engine.Register(context.Background(), "", "alice", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty tenant, got %v", err)
	}
	if _, err := engine.Register(context.Background(), testTenant, "   ", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for blank username, got %v", err)
	}
}

func TestChangePasswordSuccess(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")

	const newPassword = "even-better-password-456"
	ctx := context.Background()

	if err := engine.ChangePassword(ctx, testTenant, rec.AccountID, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.LoginSession(ctx, testTenant, "alice", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := engine.LoginSession(ctx, testTenant, "alice", newPassword); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")

	err := engine.ChangePassword(context.Background(), testTenant, rec.AccountID, "wrong-password-123", "even-better-password-456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePasswordWeakReplacement(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")

	err := engine.ChangePassword(context.Background(), testTenant, rec.AccountID, testPassword, "short")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestChangePasswordRevokesCredentials(t *testing.T) {
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

	if err := engine.ChangePassword(ctx, testTenant, rec.AccountID, testPassword, "even-better-password-456"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.ValidateSession(ctx, testTenant, sessionCred.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session revoked, got %v", err)
	}
	if _, err := engine.Refresh(ctx, tokenCred.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected revoked refresh family, got %v", err)
	}
}

func TestChangePasswordTenantMismatch(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")

	err := engine.ChangePassword(context.Background(), testOtherTenant, rec.AccountID, testPassword, "even-better-password-456")
	if !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
}

func TestChangePasswordUnknownAccount(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())

	err := engine.ChangePassword(context.Background(), testTenant, "missing", testPassword, "even-better-password-456")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
