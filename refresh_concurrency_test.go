package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	registerTestAccount(t, engine, testTenant, "alice")

	cred, err := engine.LoginToken(context.Background(), testTenant, "alice", testPassword)
	if err != nil {
		t.Fatalf("LoginToken failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	start := make(chan struct{})
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Refresh(context.Background(), cred.RefreshToken)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	success := 0
	reuse := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRefreshReuse):
			reuse++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one rotation winner, got %d", success)
	}
	if reuse != n-1 {
		t.Fatalf("expected %d reuse losers, got %d", n-1, reuse)
	}
}

func TestRefreshConcurrencyDistinctAccountsUnaffected(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testConfig())
	registerTestAccount(t, engine, testTenant, "alice")
	registerTestAccount(t, engine, testTenant, "bob")
	ctx := context.Background()

	aliceCred, err := engine.LoginToken(ctx, testTenant, "alice", testPassword)
	if err != nil {
		t.Fatalf("LoginToken failed: %v", err)
	}
	bobCred, err := engine.LoginToken(ctx, testTenant, "bob", testPassword)
	if err != nil {
		t.Fatalf("LoginToken failed: %v", err)
	}

	// Trigger a breach on alice's family.
	if _, err := engine.Refresh(ctx, aliceCred.RefreshToken); err != nil {
		t.Fatalf("rotation failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, aliceCred.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected reuse, got %v", err)
	}

	// Bob's family is untouched.
	if _, err := engine.Refresh(ctx, bobCred.RefreshToken); err != nil {
		t.Fatalf("expected bob's rotation to succeed, got %v", err)
	}
}
