package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jswierad/authgate/internal/audit"
)

// AuditSink persists audit events to the append-only audit_log table.
// Inserts are best effort; the dispatcher already decouples emission
// from request latency, and a failed insert must never fail the
// operation that produced the event.
type AuditSink struct {
	db *sql.DB
}

// NewAuditSink returns a sink writing into the store's database.
func (s *Store) NewAuditSink() *AuditSink {
	return &AuditSink{db: s.db}
}

// Emit implements audit.Sink.
func (s *AuditSink) Emit(ctx context.Context, event audit.Event) {
	var metadata []byte
	if len(event.Metadata) > 0 {
		metadata, _ = json.Marshal(event.Metadata)
	}

	_, _ = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (entry_id, occurred_at, event_type, account_id, tenant_id, session_id, ip, success, error, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.EntryID, event.OccurredAt, event.EventType,
		nullable(event.AccountID), nullable(event.TenantID), nullable(event.SessionID),
		nullable(event.IP), event.Success, nullable(event.Error), metadata,
	)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
