package authgate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	internalaudit "github.com/jswierad/authgate/internal/audit"
	"github.com/jswierad/authgate/internal/limiters"
	"github.com/jswierad/authgate/internal/rate"
	"github.com/jswierad/authgate/jwt"
	"github.com/jswierad/authgate/password"
	"github.com/jswierad/authgate/rbac"
	"github.com/jswierad/authgate/refresh"
	"github.com/jswierad/authgate/session"
)

// Engine is the authentication and authorization core. Construct it
// with [New] and [Builder.Build]; the zero value is not usable.
//
// All methods are safe for concurrent use. Every method that touches a
// backing store takes a context and fails closed: if a store cannot
// answer before the deadline, the result is an error, never an implicit
// allow.
type Engine struct {
	config Config

	accounts  AccountStore
	directory rbac.Directory
	resolver  *rbac.Resolver

	sessions *session.Store
	refresh  *refresh.Store

	jwtManager *jwt.Manager
	hasher     *password.Hasher
	policy     password.Policy
	gate       *password.Gate

	lockout     *limiters.LockoutGuard
	rateLimiter *rate.Limiter

	audit   *internalaudit.Dispatcher
	metrics *Metrics

	// dummyHash burns comparable hashing time for unknown usernames so
	// response timing does not reveal account existence.
	dummyHash string
}

// Close flushes the audit dispatcher. Call it on shutdown.
func (e *Engine) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
}

// Health reports backing-store reachability. A degraded Redis makes
// every authentication operation fail closed, so operators alert on it.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	latency, err := e.sessions.Ping(ctx)
	return HealthStatus{
		RedisOK:      err == nil,
		RedisLatency: latency,
		Err:          err,
	}
}

func newDummySecret() string {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "unreachable-fallback-credential"
	}
	return base64.RawStdEncoding.EncodeToString(buf[:])
}

// verifyPassword runs the hasher inside the concurrency gate with the
// configured timeout. A gate timeout is a failed authentication.
func (e *Engine) verifyPassword(ctx context.Context, storedHash, candidate string) (bool, error) {
	hashCtx, cancel := context.WithTimeout(ctx, e.config.Password.HashTimeout)
	defer cancel()

	var match bool
	err := e.gate.Do(hashCtx, func() error {
		ok, verifyErr := e.hasher.Verify(candidate, storedHash)
		match = ok
		return verifyErr
	})
	if err != nil {
		if errors.Is(err, password.ErrGateTimeout) {
			return false, fmt.Errorf("%w: %v", ErrHashingTimeout, err)
		}
		return false, err
	}
	return match, nil
}

// hashPassword runs hashing inside the gate with the configured timeout.
func (e *Engine) hashPassword(ctx context.Context, plaintext string) (string, error) {
	hashCtx, cancel := context.WithTimeout(ctx, e.config.Password.HashTimeout)
	defer cancel()

	var hash string
	err := e.gate.Do(hashCtx, func() error {
		h, hashErr := e.hasher.Hash(plaintext)
		hash = h
		return hashErr
	})
	if err != nil {
		if errors.Is(err, password.ErrGateTimeout) {
			return "", fmt.Errorf("%w: %v", ErrHashingTimeout, err)
		}
		return "", err
	}
	return hash, nil
}
