package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jswierad/authgate"
)

const uniqueViolation = "23505"

// Store implements authgate.AccountStore and rbac.Directory over a SQL
// database. It is written against PostgreSQL via the pgx stdlib driver
// but uses only database/sql, so tests run against sqlmock.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL using the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle. Used by tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new account row. The accounts table carries a unique
// (tenant_id, username) constraint; a collision maps to ErrAccountExists.
func (s *Store) Create(ctx context.Context, rec authgate.AccountRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, tenant_id, username, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		rec.AccountID, rec.TenantID, rec.Username, rec.PasswordHash, int(rec.Status), rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return authgate.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByUsername fetches an account by its tenant-scoped username.
func (s *Store) GetByUsername(ctx context.Context, tenantID, username string) (authgate.AccountRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, tenant_id, username, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE tenant_id = $1 AND username = $2`,
		tenantID, username,
	)
	return scanAccount(row)
}

// GetByID fetches an account by its globally unique ID.
func (s *Store) GetByID(ctx context.Context, accountID string) (authgate.AccountRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, tenant_id, username, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE account_id = $1`,
		accountID,
	)
	return scanAccount(row)
}

// UpdatePasswordHash replaces the stored hash for an account.
func (s *Store) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	return s.updateAccount(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE account_id = $1`,
		accountID, hash, time.Now(),
	)
}

// UpdateStatus transitions the account lifecycle state.
func (s *Store) UpdateStatus(ctx context.Context, accountID string, status authgate.AccountStatus) error {
	return s.updateAccount(ctx, `
		UPDATE accounts SET status = $2, updated_at = $3 WHERE account_id = $1`,
		accountID, int(status), time.Now(),
	)
}

func (s *Store) updateAccount(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if affected == 0 {
		return authgate.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (authgate.AccountRecord, error) {
	var (
		rec    authgate.AccountRecord
		status int
	)
	err := row.Scan(&rec.AccountID, &rec.TenantID, &rec.Username, &rec.PasswordHash, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authgate.AccountRecord{}, authgate.ErrAccountNotFound
		}
		return authgate.AccountRecord{}, fmt.Errorf("scan account: %w", err)
	}
	rec.Status = authgate.AccountStatus(status)
	return rec, nil
}
