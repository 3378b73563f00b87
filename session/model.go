package session

import "time"

// Session is the server-side record backing a browser session. The
// SessionID is never stored inside the encoded blob; it is the Redis key
// and is reattached after decode.
type Session struct {
	SessionID  string
	AccountID  string
	TenantID   string
	PermHash   [32]byte
	DeviceHash [32]byte
	CreatedAt  int64 // unix seconds
	LastSeenAt int64 // unix seconds
	ExpiresAt  int64 // unix seconds, sliding expiry
}

// Expired reports whether the session's stored expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() > s.ExpiresAt
}
