package audit

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Event is the canonical append-only audit record. EntryID is a ULID so
// entries sort by emission time even across service instances.
type Event struct {
	EntryID    string            `json:"entry_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	EventType  string            `json:"event_type"`
	AccountID  string            `json:"account_id,omitempty"`
	TenantID   string            `json:"tenant_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewEntryID returns a fresh ULID for an audit entry.
func NewEntryID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// Sink receives emitted audit events. Implementations must treat events
// as immutable.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// StreamSink appends events to a Redis stream via XADD. Streams are
// append-only, which matches the audit-log immutability requirement;
// MaxLen bounds retention with approximate trimming.
type StreamSink struct {
	redis  redis.UniversalClient
	stream string
	maxLen int64
}

func NewStreamSink(client redis.UniversalClient, stream string, maxLen int64) *StreamSink {
	if stream == "" {
		stream = "authgate:audit"
	}
	return &StreamSink{redis: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.redis == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{"event": data},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	_ = s.redis.XAdd(ctx, args).Err()
}
