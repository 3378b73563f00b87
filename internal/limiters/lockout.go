package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig tunes the failed-attempt lockout guard.
type LockoutConfig struct {
	Enabled     bool
	Threshold   int           // failures within Window before lockout
	Window      time.Duration // rolling failure-counting window
	BaseBackoff time.Duration // lockout at exactly Threshold failures
	MaxBackoff  time.Duration // exponential growth cap
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// The increment, threshold comparison, and lock write happen in one Lua
// script so two concurrent failures cannot under-count and slip past the
// threshold. The lock TTL only ever grows within a window (monotonic).
const recordFailureScript = `
local counter_key = KEYS[1]
local lock_key = KEYS[2]
local threshold = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local base_ms = tonumber(ARGV[3])
local cap_ms = tonumber(ARGV[4])

local count = redis.call("INCR", counter_key)
if count == 1 then
  redis.call("PEXPIRE", counter_key, window_ms)
end

if count < threshold then
  return {0, 0, count}
end

local over = count - threshold
local backoff = cap_ms
if over < 30 then
  backoff = base_ms * (2 ^ over)
  if backoff > cap_ms then
    backoff = cap_ms
  end
end
backoff = math.floor(backoff)

local current = redis.call("PTTL", lock_key)
if current < backoff then
  redis.call("SET", lock_key, count, "PX", backoff)
else
  backoff = current
end

return {1, backoff, count}
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// LockoutGuard tracks failed authentication attempts per account and
// enforces a temporary, exponentially growing lockout. State lives in
// Redis so the guarantee holds across service instances.
type LockoutGuard struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutGuard creates a lockout guard with the given config.
func NewLockoutGuard(client redis.UniversalClient, cfg LockoutConfig) *LockoutGuard {
	return &LockoutGuard{redis: client, config: cfg}
}

func (g *LockoutGuard) counterKey(tenantID, accountID string) string {
	return "alo:" + tenantID + ":" + accountID
}

func (g *LockoutGuard) lockKey(tenantID, accountID string) string {
	return "alk:" + tenantID + ":" + accountID
}

// RecordFailure atomically increments the failure counter and, when the
// threshold is crossed, arms the lockout. It reports whether the account
// is now locked and for how long.
func (g *LockoutGuard) RecordFailure(ctx context.Context, tenantID, accountID string) (bool, time.Duration, error) {
	if !g.config.Enabled || accountID == "" {
		return false, 0, nil
	}

	result, err := recordFailureLua.Run(
		ctx,
		g.redis,
		[]string{g.counterKey(tenantID, accountID), g.lockKey(tenantID, accountID)},
		g.config.Threshold,
		g.config.Window.Milliseconds(),
		g.config.BaseBackoff.Milliseconds(),
		g.config.MaxBackoff.Milliseconds(),
	).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) < 2 {
		return false, 0, fmt.Errorf("%w: invalid lockout script response", ErrLockoutUnavailable)
	}

	locked, _ := parts[0].(int64)
	backoffMs, _ := parts[1].(int64)
	return locked == 1, time.Duration(backoffMs) * time.Millisecond, nil
}

// CheckLocked reports whether the account is currently locked out and
// the remaining lockout duration. Runs before any hashing work.
func (g *LockoutGuard) CheckLocked(ctx context.Context, tenantID, accountID string) (bool, time.Duration, error) {
	if !g.config.Enabled || accountID == "" {
		return false, 0, nil
	}

	ttl, err := g.redis.PTTL(ctx, g.lockKey(tenantID, accountID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl <= 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

// RecordSuccess resets the failure counter. The counter resets only on
// successful authentication; an armed lock stays until it expires or an
// administrator clears it with Reset.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, tenantID, accountID string) error {
	if !g.config.Enabled || accountID == "" {
		return nil
	}

	if err := g.redis.Del(ctx, g.counterKey(tenantID, accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Reset clears both the counter and any armed lock (manual unlock).
func (g *LockoutGuard) Reset(ctx context.Context, tenantID, accountID string) error {
	if !g.config.Enabled || accountID == "" {
		return nil
	}

	keys := []string{g.counterKey(tenantID, accountID), g.lockKey(tenantID, accountID)}
	if err := g.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current failure counter for introspection.
func (g *LockoutGuard) FailureCount(ctx context.Context, tenantID, accountID string) (int, error) {
	if !g.config.Enabled || accountID == "" {
		return 0, nil
	}

	count, err := g.redis.Get(ctx, g.counterKey(tenantID, accountID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
