package pg

import (
	"context"
	"fmt"
)

// Schema is the reference DDL for the SQL store. Accounts are
// soft-disabled, never deleted; audit_log carries no UPDATE or DELETE
// path in application code.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id    TEXT PRIMARY KEY,
    tenant_id     TEXT NOT NULL,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    status        SMALLINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    UNIQUE (tenant_id, username)
);

CREATE TABLE IF NOT EXISTS role_permissions (
    tenant_id  TEXT NOT NULL,
    role_name  TEXT NOT NULL,
    permission TEXT NOT NULL,
    PRIMARY KEY (tenant_id, role_name, permission)
);

CREATE TABLE IF NOT EXISTS role_assignments (
    tenant_id  TEXT NOT NULL,
    account_id TEXT NOT NULL,
    role_name  TEXT NOT NULL,
    PRIMARY KEY (tenant_id, account_id, role_name)
);

CREATE TABLE IF NOT EXISTS permission_overrides (
    tenant_id  TEXT NOT NULL,
    account_id TEXT NOT NULL,
    permission TEXT NOT NULL,
    effect     TEXT NOT NULL CHECK (effect IN ('GRANT', 'DENY')),
    PRIMARY KEY (tenant_id, account_id, permission)
);

CREATE TABLE IF NOT EXISTS audit_log (
    entry_id    TEXT PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    event_type  TEXT NOT NULL,
    account_id  TEXT,
    tenant_id   TEXT,
    session_id  TEXT,
    ip          TEXT,
    success     BOOLEAN NOT NULL,
    error       TEXT,
    metadata    JSONB
);

CREATE INDEX IF NOT EXISTS audit_log_tenant_time ON audit_log (tenant_id, occurred_at);
`

// Migrate applies the reference schema. Intended for development and
// examples; production deployments manage DDL externally.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
