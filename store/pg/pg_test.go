package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jswierad/authgate"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})

	return NewStore(db), mock
}

func sampleRecord() authgate.AccountRecord {
	now := time.Now().UTC()
	return authgate.AccountRecord{
		AccountID:    "acct-1",
		TenantID:     "tenant-1",
		Username:     "alice",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Status:       authgate.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountColumns() []string {
	return []string{"account_id", "tenant_id", "username", "password_hash", "status", "created_at", "updated_at"}
}

func TestCreate(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(rec.AccountID, rec.TenantID, rec.Username, rec.PasswordHash, int(rec.Status), rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestCreateDuplicateMapsToAccountExists(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_tenant_username_key"})

	err := store.Create(context.Background(), rec)
	if !errors.Is(err, authgate.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestCreateOtherErrorPassesThrough(t *testing.T) {
	store, mock := newMockStore(t)

	boom := errors.New("connection refused")
	mock.ExpectExec("INSERT INTO accounts").WillReturnError(boom)

	err := store.Create(context.Background(), sampleRecord())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
	if errors.Is(err, authgate.ErrAccountExists) {
		t.Fatal("non-unique violations must not map to ErrAccountExists")
	}
}

func TestGetByUsername(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("tenant-1", "alice").
		WillReturnRows(sqlmock.NewRows(accountColumns()).
			AddRow(rec.AccountID, rec.TenantID, rec.Username, rec.PasswordHash, int(rec.Status), rec.CreatedAt, rec.UpdatedAt))

	got, err := store.GetByUsername(context.Background(), "tenant-1", "alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if got.AccountID != rec.AccountID || got.Status != authgate.AccountActive {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGetByUsernameNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("tenant-1", "ghost").
		WillReturnRows(sqlmock.NewRows(accountColumns()))

	_, err := store.GetByUsername(context.Background(), "tenant-1", "ghost")
	if !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows(accountColumns()).
			AddRow(rec.AccountID, rec.TenantID, rec.Username, rec.PasswordHash, int(rec.Status), rec.CreatedAt, rec.UpdatedAt))

	got, err := store.GetByID(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Username != "alice" || got.TenantID != "tenant-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE accounts SET password_hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.UpdatePasswordHash(context.Background(), "acct-1", "new-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash failed: %v", err)
	}
}

func TestUpdateMissingAccount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE accounts SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateStatus(context.Background(), "ghost", authgate.AccountDisabled)
	if !errors.Is(err, authgate.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
