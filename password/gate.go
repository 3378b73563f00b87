package password

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// ErrGateTimeout is returned when a hashing slot cannot be acquired
// before the caller's deadline. The operation fails closed.
var ErrGateTimeout = errors.New("hashing gate timeout")

// Gate bounds the number of concurrent argon2 computations. Hashing is
// deliberately expensive, so unbounded concurrency is a resource
// exhaustion vector; the gate admits at most maxConcurrent hashes and
// respects the caller's context deadline while waiting.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting maxConcurrent concurrent hashes.
// maxConcurrent <= 0 disables gating.
func NewGate(maxConcurrent int64) *Gate {
	if maxConcurrent <= 0 {
		return &Gate{}
	}
	return &Gate{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Do runs fn inside the gate. A context expiry while waiting returns
// ErrGateTimeout without running fn.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if g == nil || g.sem == nil {
		return fn()
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return errors.Join(ErrGateTimeout, err)
	}
	defer g.sem.Release(1)

	return fn()
}
