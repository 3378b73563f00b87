package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jswierad/authgate/internal/audit"
	"github.com/jswierad/authgate/rbac"
)

func TestAccountRolesGroupsByRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM role_assignments").
		WithArgs("tenant-1", "acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"role_name", "permission"}).
			AddRow("admin", "account:disable").
			AddRow("admin", "account:enable").
			AddRow("editor", "doc:read").
			AddRow("editor", "doc:write"))

	roles, err := store.AccountRoles(context.Background(), "tenant-1", "acct-1")
	if err != nil {
		t.Fatalf("AccountRoles failed: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d: %+v", len(roles), roles)
	}
	if roles[0].Name != "admin" || len(roles[0].Permissions) != 2 {
		t.Fatalf("unexpected first role: %+v", roles[0])
	}
	if roles[1].Name != "editor" || roles[1].Permissions[1] != "doc:write" {
		t.Fatalf("unexpected second role: %+v", roles[1])
	}
	if roles[0].TenantID != "tenant-1" {
		t.Fatalf("expected tenant stamped on role, got %+v", roles[0])
	}
}

func TestAccountRolesEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM role_assignments").
		WithArgs("tenant-1", "acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"role_name", "permission"}))

	roles, err := store.AccountRoles(context.Background(), "tenant-1", "acct-1")
	if err != nil {
		t.Fatalf("AccountRoles failed: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected no roles, got %+v", roles)
	}
}

func TestAccountOverrides(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM permission_overrides").
		WithArgs("tenant-1", "acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"permission", "effect"}).
			AddRow("doc:delete", "DENY").
			AddRow("report:export", "GRANT"))

	overrides, err := store.AccountOverrides(context.Background(), "tenant-1", "acct-1")
	if err != nil {
		t.Fatalf("AccountOverrides failed: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("expected 2 overrides, got %+v", overrides)
	}
	if overrides[0].Effect != rbac.EffectDeny || overrides[0].Permission != "doc:delete" {
		t.Fatalf("unexpected override: %+v", overrides[0])
	}
	if overrides[1].AccountID != "acct-1" || overrides[1].TenantID != "tenant-1" {
		t.Fatalf("expected identity stamped, got %+v", overrides[1])
	}
}

func TestAuditSinkInsert(t *testing.T) {
	store, mock := newMockStore(t)
	sink := store.NewAuditSink()

	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sink.Emit(context.Background(), audit.Event{
		EntryID:    audit.NewEntryID(time.Now()),
		OccurredAt: time.Now().UTC(),
		EventType:  "login.success",
		AccountID:  "acct-1",
		TenantID:   "tenant-1",
		Success:    true,
		Metadata:   map[string]string{"ip": "10.0.0.1"},
	})
}

func TestAuditSinkSwallowsErrors(t *testing.T) {
	store, mock := newMockStore(t)
	sink := store.NewAuditSink()

	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnError(context.DeadlineExceeded)

	// Must not panic; failed audit writes never surface.
	sink.Emit(context.Background(), audit.Event{
		EntryID:   audit.NewEntryID(time.Now()),
		EventType: "logout",
	})
}
