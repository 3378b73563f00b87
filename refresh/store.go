package refresh

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jswierad/authgate/internal"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Outcome classifies the result of presenting a refresh token.
type Outcome int

const (
	// OutcomeNotFound means no record exists for the presented secret.
	OutcomeNotFound Outcome = iota
	// OutcomeReuse means a rotated or revoked token was presented. The
	// entire family has been revoked as a suspected breach.
	OutcomeReuse
	// OutcomeRotated means the token was active and a successor was
	// issued atomically.
	OutcomeRotated
	// OutcomeExpired means the family's absolute lifetime had passed
	// when the token was presented. The family is revoked the same way
	// reuse revokes it; an expired presentation is indistinguishable
	// from a replay of a retired token.
	OutcomeExpired
)

const (
	statusActive  = "A"
	statusRotated = "R"
	statusRevoked = "V"
)

// Key layout:
//
//	rt:<hex sha256 of secret>  hash  fam, acct, tid, tok, par, dev,
//	                                 st, exp (ms), iat (ms)
//	rtf:<family>               set   token hashes belonging to the family
//	rta:<tenant>:<account>     set   family IDs issued to the account
//
// tok is the token's own ID, par the parent token's ID (empty for the
// initial token), so the records form a singly-linked chain back to
// issuance. dev is the hex digest of the device fingerprint captured at
// login, inherited unchanged across rotations.
const (
	tokenPrefix   = "rt:"
	familyPrefix  = "rtf:"
	accountPrefix = "rta:"
)

// expiredRetention keeps records alive past the family's absolute
// expiry. A token presented after expiry must still resolve to its
// record so the presentation can revoke the family; without the
// tombstone window it would read as an unknown token.
const expiredRetention = 24 * time.Hour

// rotateScript is the single atomic step of the rotation protocol. The
// presented token is looked up; an active token is marked ROTATED and a
// successor record is created in the same script execution, so two
// concurrent presentations of the same token can never both succeed. A
// non-active or expired token marks every member of its family REVOKED
// before reporting, so the caller always sees an already-dead family.
const rotateScript = `
local token_prefix = ARGV[1]
local fam_prefix = ARGV[2]
local now_ms = tonumber(ARGV[3])
local new_hash = ARGV[4]
local retention_ms = tonumber(ARGV[5])
local new_id = ARGV[6]

local vals = redis.call("HMGET", KEYS[1], "fam", "acct", "tid", "st", "exp", "tok", "dev")
local fam = vals[1]
if not fam then
  return {0}
end
local acct = vals[2]
local tid = vals[3]
local st = vals[4]
local exp = tonumber(vals[5])
local fam_key = fam_prefix .. fam

local function revoke_family()
  local members = redis.call("SMEMBERS", fam_key)
  for i = 1, #members do
    redis.call("HSET", token_prefix .. members[i], "st", "V")
  end
end

if exp and exp <= now_ms then
  revoke_family()
  return {3, fam, acct, tid}
end

if st ~= "A" then
  revoke_family()
  return {1, fam, acct, tid}
end

redis.call("HSET", KEYS[1], "st", "R")

local new_key = token_prefix .. new_hash
redis.call("HSET", new_key,
  "fam", fam, "acct", acct, "tid", tid,
  "tok", new_id, "par", vals[6] or "", "dev", vals[7] or "",
  "st", "A", "exp", vals[5], "iat", ARGV[3])
redis.call("PEXPIREAT", new_key, exp + retention_ms)
redis.call("SADD", fam_key, new_hash)

return {2, fam, acct, tid}
`

var rotateLua = redis.NewScript(rotateScript)

const revokeFamilyScript = `
local token_prefix = ARGV[1]
local members = redis.call("SMEMBERS", KEYS[1])
for i = 1, #members do
  redis.call("HSET", token_prefix .. members[i], "st", "V")
end
return #members
`

var revokeFamilyLua = redis.NewScript(revokeFamilyScript)

// RotateResult reports what happened when a token was presented, plus
// the identity attached to the family for audit and breach handling.
type RotateResult struct {
	Outcome   Outcome
	Token     string // successor secret, set only for OutcomeRotated
	FamilyID  string
	AccountID string
	TenantID  string
}

// Store manages refresh-token families in Redis. Each issued token is a
// random secret known only to the client; Redis holds its SHA-256 hash.
type Store struct {
	redis     redis.UniversalClient
	familyTTL time.Duration
}

// NewStore creates a refresh Store. familyTTL is the absolute lifetime
// of a family measured from initial issuance; rotation never extends it.
func NewStore(client redis.UniversalClient, familyTTL time.Duration) *Store {
	return &Store{redis: client, familyTTL: familyTTL}
}

func tokenKey(hash [32]byte) string {
	return tokenPrefix + hex.EncodeToString(hash[:])
}

func familyKey(familyID string) string {
	return familyPrefix + familyID
}

func accountKey(tenantID, accountID string) string {
	return accountPrefix + tenantID + ":" + accountID
}

// IssueInitial mints a fresh family with one active token for the
// account and returns the client-facing secret and the family ID.
// deviceHash is the hex digest of the login device fingerprint; it may
// be empty and is inherited by every descendant of the initial token.
func (s *Store) IssueInitial(ctx context.Context, accountID, tenantID, deviceHash string) (token, familyID string, err error) {
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return "", "", err
	}
	hash := internal.HashRefreshSecret(secret)

	now := time.Now()
	familyID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	tokenID := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	expMs := now.Add(s.familyTTL).UnixMilli()
	hexHash := hex.EncodeToString(hash[:])

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := tokenKey(hash)
		pipe.HSet(ctx, key,
			"fam", familyID, "acct", accountID, "tid", tenantID,
			"tok", tokenID, "par", "", "dev", deviceHash,
			"st", statusActive, "exp", expMs, "iat", now.UnixMilli())
		pipe.PExpireAt(ctx, key, time.UnixMilli(expMs).Add(expiredRetention))

		famKey := familyKey(familyID)
		pipe.SAdd(ctx, famKey, hexHash)
		pipe.PExpireAt(ctx, famKey, time.UnixMilli(expMs).Add(expiredRetention))

		acctKey := accountKey(tenantID, accountID)
		pipe.SAdd(ctx, acctKey, familyID)
		pipe.PExpire(ctx, acctKey, s.familyTTL+expiredRetention)
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return internal.EncodeRefreshSecret(secret), familyID, nil
}

// Rotate presents a refresh secret. On success the presented token is
// retired and the successor secret is returned; the family's absolute
// expiry carries over unchanged. Presenting a retired or expired token
// revokes the whole family atomically before this call returns.
func (s *Store) Rotate(ctx context.Context, presented string) (*RotateResult, error) {
	secret, err := internal.DecodeRefreshSecret(presented)
	if err != nil {
		return &RotateResult{Outcome: OutcomeNotFound}, nil
	}
	hash := internal.HashRefreshSecret(secret)

	next, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, err
	}
	nextHash := internal.HashRefreshSecret(next)
	nextID := ulid.MustNew(ulid.Now(), ulid.DefaultEntropy()).String()

	raw, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{tokenKey(hash)},
		tokenPrefix,
		familyPrefix,
		time.Now().UnixMilli(),
		hex.EncodeToString(nextHash[:]),
		expiredRetention.Milliseconds(),
		nextID,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := raw.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrRedisUnavailable)
	}

	result := &RotateResult{}
	if len(parts) >= 4 {
		result.FamilyID = scriptString(parts[1])
		result.AccountID = scriptString(parts[2])
		result.TenantID = scriptString(parts[3])
	}

	switch code {
	case 0:
		result.Outcome = OutcomeNotFound
	case 1:
		result.Outcome = OutcomeReuse
	case 2:
		result.Outcome = OutcomeRotated
		result.Token = internal.EncodeRefreshSecret(next)
	case 3:
		result.Outcome = OutcomeExpired
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrRedisUnavailable)
	}

	return result, nil
}

// RevokeFamily marks every token in the family revoked. Idempotent.
func (s *Store) RevokeFamily(ctx context.Context, familyID string) error {
	err := revokeFamilyLua.Run(ctx, s.redis, []string{familyKey(familyID)}, tokenPrefix).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAllForAccount revokes every family ever issued to the account
// that is still tracked. Used on password change and logout-everywhere.
func (s *Store) RevokeAllForAccount(ctx context.Context, tenantID, accountID string) error {
	acctKey := accountKey(tenantID, accountID)

	familyIDs, err := s.redis.SMembers(ctx, acctKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, familyID := range familyIDs {
		if err := s.RevokeFamily(ctx, familyID); err != nil {
			return err
		}
	}

	if err := s.redis.Del(ctx, acctKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// FamilyTTL exposes the configured absolute family lifetime.
func (s *Store) FamilyTTL() time.Duration {
	return s.familyTTL
}

func scriptString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
