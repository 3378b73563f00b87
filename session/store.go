package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis. All
// callers treat it as fail-closed.
var ErrRedisUnavailable = errors.New("redis unavailable")

const minSlidingTTL = time.Second

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  local count = tonumber(redis.call("GET", KEYS[3]) or "0")
  if count > 1 then
    redis.call("DECR", KEYS[3])
  elseif count == 1 then
    redis.call("DEL", KEYS[3])
  end
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Config controls session lifetime semantics.
type Config struct {
	Prefix      string
	Sliding     bool
	IdleTTL     time.Duration // sliding window extended on each validation
	AbsoluteTTL time.Duration // hard cap measured from creation; 0 disables
}

// Store is the Redis-backed session store. It owns persistence, the
// per-account session index, sliding renewal with an absolute cap, and
// tenant-wide counters.
type Store struct {
	redis  redis.UniversalClient
	config Config
}

// NewStore creates a session Store backed by the given Redis client.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "as"
	}
	return &Store{redis: client, config: cfg}
}

func (s *Store) key(tenantID, sessionID string) string {
	return s.config.Prefix + ":" + normalizeTenantID(tenantID) + ":" + sessionID
}

func (s *Store) accountKey(tenantID, accountID string) string {
	return "asa:" + normalizeTenantID(tenantID) + ":" + accountID
}

func (s *Store) tenantCountKey(tenantID string) string {
	return "ast:" + normalizeTenantID(tenantID) + ":count"
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

// Save persists a new session. The stored expiry is now+IdleTTL capped
// at CreatedAt+AbsoluteTTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	now := time.Now()
	if sess.CreatedAt == 0 {
		sess.CreatedAt = now.Unix()
	}
	if sess.LastSeenAt == 0 {
		sess.LastSeenAt = sess.CreatedAt
	}
	sess.ExpiresAt = s.expiryFor(sess.CreatedAt, now)

	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl <= 0 {
		return errors.New("session already expired at save")
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.TenantID, sess.SessionID)
	accountKey := s.accountKey(sess.TenantID, sess.AccountID)
	countKey := s.tenantCountKey(sess.TenantID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, accountKey, sess.SessionID)
		pipe.Incr(ctx, countKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session and, when sliding renewal is enabled, extends
// its expiry and records the access time. Returns redis.Nil for missing
// or expired sessions; an expired record is deleted on sight.
func (s *Store) Get(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	key := s.key(tenantID, sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	now := time.Now()
	if s.absoluteDeadline(sess.CreatedAt).Unix() <= now.Unix() || sess.Expired(now) {
		if err := s.deleteSessionAndIndex(ctx, sess.TenantID, sess.AccountID, sessionID); err != nil {
			return nil, err
		}
		return nil, redis.Nil
	}

	if !s.config.Sliding {
		return sess, nil
	}

	sess.LastSeenAt = now.Unix()
	sess.ExpiresAt = s.expiryFor(sess.CreatedAt, now)

	nextTTL := time.Until(time.Unix(sess.ExpiresAt, 0))
	if nextTTL < minSlidingTTL {
		nextTTL = minSlidingTTL
	}

	updated, err := Encode(sess)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, key, updated, nextTTL).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// GetReadOnly fetches a session without touching TTL, index, or
// last-seen state.
func (s *Store) GetReadOnly(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(tenantID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID
	if sess.Expired(time.Now()) {
		return nil, redis.Nil
	}

	return sess, nil
}

// Delete removes a session and its index entry. Deleting a session that
// does not exist is a no-op.
func (s *Store) Delete(ctx context.Context, tenantID, sessionID string) error {
	key := s.key(tenantID, sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return err
	}

	return s.deleteSessionAndIndex(ctx, sess.TenantID, sess.AccountID, sessionID)
}

// DeleteAllForAccount removes every tracked session for an account
// within a tenant. Revocation is immediate: subsequent Gets miss.
//
// ATOMICITY NOTE: the read of the account index and the delete happen in
// separate round-trips, so a session created in between is not captured.
// The stray session expires naturally or is caught by the next call.
func (s *Store) DeleteAllForAccount(ctx context.Context, tenantID, accountID string) error {
	accountKey := s.accountKey(tenantID, accountID)
	countKey := s.tenantCountKey(tenantID)

	sessionIDs, err := s.redis.SMembers(ctx, accountKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessionKeys := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		sessionKeys = append(sessionKeys, s.key(tenantID, sessionID))
	}

	currentCount, err := s.TenantSessionCount(ctx, tenantID)
	if err != nil {
		return err
	}

	var existing int
	if len(sessionKeys) > 0 {
		pipe := s.redis.Pipeline()
		existsCmds := make([]*redis.IntCmd, len(sessionKeys))
		for i, sessionKey := range sessionKeys {
			existsCmds[i] = pipe.Exists(ctx, sessionKey)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, cmd := range existsCmds {
			v, cmdErr := cmd.Result()
			if cmdErr != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
			}
			existing += int(v)
		}
	}

	decrement := existing
	if decrement > currentCount {
		decrement = currentCount
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sessionKeys) > 0 {
			pipe.Del(ctx, sessionKeys...)
		}
		pipe.Del(ctx, accountKey)
		if decrement > 0 {
			pipe.DecrBy(ctx, countKey, int64(decrement))
		}
		if decrement == currentCount && currentCount > 0 {
			pipe.Del(ctx, countKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// TenantSessionCount returns the tracked tenant-wide session counter.
func (s *Store) TenantSessionCount(ctx context.Context, tenantID string) (int, error) {
	count, err := s.redis.Get(ctx, s.tenantCountKey(tenantID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// ActiveSessionCount returns the number of tracked session IDs for an
// account in a tenant.
func (s *Store) ActiveSessionCount(ctx context.Context, tenantID, accountID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.accountKey(tenantID, accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// ActiveSessionIDs returns tracked session IDs for an account in a tenant.
func (s *Store) ActiveSessionIDs(ctx context.Context, tenantID, accountID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.accountKey(tenantID, accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) absoluteDeadline(createdAt int64) time.Time {
	if s.config.AbsoluteTTL <= 0 {
		// far future sentinel keeps the cap comparison simple
		return time.Unix(createdAt, 0).AddDate(100, 0, 0)
	}
	return time.Unix(createdAt, 0).Add(s.config.AbsoluteTTL)
}

func (s *Store) expiryFor(createdAt int64, now time.Time) int64 {
	expiry := now.Add(s.config.IdleTTL)
	if deadline := s.absoluteDeadline(createdAt); expiry.After(deadline) {
		expiry = deadline
	}
	return expiry.Unix()
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, tenantID, accountID, sessionID string) error {
	key := s.key(tenantID, sessionID)
	accountKey := s.accountKey(tenantID, accountID)
	countKey := s.tenantCountKey(tenantID)

	_, err := deleteSessionLua.Run(ctx, s.redis, []string{key, accountKey, countKey}, sessionID).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}
