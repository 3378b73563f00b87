package authgate

import (
	"context"
	"errors"
	"testing"

	"github.com/jswierad/authgate/rbac"
)

func permissionTestSetup(t *testing.T) (*Engine, *rbac.MemoryDirectory, AuthResult) {
	t.Helper()

	engine, _, directory, _ := newTestEngine(t, testConfig())
	rec := registerTestAccount(t, engine, testTenant, "alice")

	directory.PutRole(rbac.Role{TenantID: testTenant, Name: "editor", Permissions: []string{"doc.read", "doc.write"}})
	directory.Assign(testTenant, rec.AccountID, "editor")

	cred, err := engine.LoginSession(context.Background(), testTenant, "alice", testPassword)
	if err != nil {
		t.Fatalf("LoginSession failed: %v", err)
	}
	res, err := engine.ValidateSession(context.Background(), testTenant, cred.SessionID)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	return engine, directory, res
}

func TestCheckRoleGrant(t *testing.T) {
	engine, _, res := permissionTestSetup(t)

	if err := engine.Check(context.Background(), res, "doc.read"); err != nil {
		t.Fatalf("expected grant via role, got %v", err)
	}
	if err := engine.Check(context.Background(), res, "doc.delete"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected default deny, got %v", err)
	}
}

func TestCheckDenyOverrideBeatsRoleGrant(t *testing.T) {
	engine, directory, res := permissionTestSetup(t)

	directory.PutOverride(rbac.Override{
		AccountID:  res.AccountID,
		TenantID:   testTenant,
		Permission: "doc.write",
		Effect:     rbac.EffectDeny,
	})

	if err := engine.Check(context.Background(), res, "doc.write"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected DENY override to win, got %v", err)
	}
	// Sibling permissions from the same role are unaffected.
	if err := engine.Check(context.Background(), res, "doc.read"); err != nil {
		t.Fatalf("expected doc.read still granted, got %v", err)
	}
}

func TestCheckGrantOverrideWithoutRole(t *testing.T) {
	engine, directory, res := permissionTestSetup(t)

	directory.PutOverride(rbac.Override{
		AccountID:  res.AccountID,
		TenantID:   testTenant,
		Permission: "billing.view",
		Effect:     rbac.EffectGrant,
	})

	if err := engine.Check(context.Background(), res, "billing.view"); err != nil {
		t.Fatalf("expected GRANT override to apply, got %v", err)
	}
}

func TestCheckRevocationAfterIssuance(t *testing.T) {
	engine, directory, res := permissionTestSetup(t)

	if err := engine.Check(context.Background(), res, "doc.write"); err != nil {
		t.Fatalf("expected initial grant, got %v", err)
	}

	// A deny added after the credential was issued applies on the very
	// next check; the hash inside the credential carries no authority.
	directory.PutOverride(rbac.Override{
		AccountID:  res.AccountID,
		TenantID:   testTenant,
		Permission: "doc.write",
		Effect:     rbac.EffectDeny,
	})

	if err := engine.Check(context.Background(), res, "doc.write"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected revocation to take effect immediately, got %v", err)
	}
}

func TestCheckRolesAreTenantScoped(t *testing.T) {
	engine, directory, res := permissionTestSetup(t)

	// The same role name in another tenant grants nothing here.
	directory.PutRole(rbac.Role{TenantID: testOtherTenant, Name: "editor", Permissions: []string{"doc.admin"}})
	directory.Assign(testOtherTenant, res.AccountID, "editor")

	if err := engine.Check(context.Background(), res, "doc.admin"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected cross-tenant role to be invisible, got %v", err)
	}
}

func TestEnforceTenant(t *testing.T) {
	engine, _, res := permissionTestSetup(t)

	if err := engine.EnforceTenant(context.Background(), res, testTenant); err != nil {
		t.Fatalf("expected matching tenant to pass, got %v", err)
	}
	if err := engine.EnforceTenant(context.Background(), res, testOtherTenant); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
}

func TestPermissionSnapshotHashChangesWithSet(t *testing.T) {
	engine, directory, res := permissionTestSetup(t)
	ctx := context.Background()

	before, err := engine.PermissionSnapshot(ctx, testTenant, res.AccountID)
	if err != nil {
		t.Fatalf("PermissionSnapshot failed: %v", err)
	}

	directory.PutOverride(rbac.Override{
		AccountID:  res.AccountID,
		TenantID:   testTenant,
		Permission: "billing.view",
		Effect:     rbac.EffectGrant,
	})

	after, err := engine.PermissionSnapshot(ctx, testTenant, res.AccountID)
	if err != nil {
		t.Fatalf("PermissionSnapshot failed: %v", err)
	}
	if before.Hash() == after.Hash() {
		t.Fatal("expected permission hash to change with the set")
	}
}
