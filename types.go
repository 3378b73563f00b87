package authgate

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/jswierad/authgate/internal/audit"
	internalmetrics "github.com/jswierad/authgate/internal/metrics"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountLocked
	AccountDisabled
)

// AccountRecord is the durable account row managed through [AccountStore].
// Accounts are never deleted; they are soft-disabled instead.
type AccountRecord struct {
	AccountID    string
	TenantID     string
	Username     string
	PasswordHash string
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountStore is the persistence interface the engine requires for
// account rows. Implementations must enforce (tenant_id, username)
// uniqueness on Create and return [ErrAccountExists] on collision, and
// [ErrAccountNotFound] for missing rows. The pg subpackage provides a
// SQL-backed implementation.
type AccountStore interface {
	Create(ctx context.Context, rec AccountRecord) error
	GetByUsername(ctx context.Context, tenantID, username string) (AccountRecord, error)
	GetByID(ctx context.Context, accountID string) (AccountRecord, error)
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
	UpdateStatus(ctx context.Context, accountID string, status AccountStatus) error
}

// AuthResult is returned by [Engine.ValidateSession] and
// [Engine.VerifyAccessToken]. TenantID always originates from the
// validated credential, never from request input.
type AuthResult struct {
	AccountID      string
	TenantID       string
	SessionID      string
	PermissionHash [32]byte
}

// SessionCredential is returned by [Engine.LoginSession].
type SessionCredential struct {
	SessionID string
	AccountID string
	TenantID  string
	ExpiresAt time.Time
}

// TokenCredential is returned by [Engine.LoginToken] and [Engine.Refresh].
type TokenCredential struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// SessionInfo is a read-only session view for introspection APIs.
type SessionInfo struct {
	SessionID  string
	AccountID  string
	TenantID   string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// HealthStatus reports backing-store reachability.
type HealthStatus struct {
	RedisOK      bool
	RedisLatency time.Duration
	Err          error
}

// AuditEvent is the structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel for test and pipeline use.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON-encoded audit event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// StreamSink appends audit events to a Redis stream.
type StreamSink = internalaudit.StreamSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// Metrics holds the engine's atomic counters and optional histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
