package authgate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jswierad/authgate/rbac"
)

const (
	testTenant      = "t1"
	testOtherTenant = "t2"
	testPassword    = "correct-password-123"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testConfig keeps argon2 at its minimum cost so the suite stays fast,
// and disables throttles that individual tests do not exercise.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Leeway = 0
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.Pepper = []byte("test-pepper-0123456789abcdef")
	cfg.Password.MinLength = 8
	cfg.Password.RequireUpper = false
	cfg.Password.RequireLower = false
	cfg.Password.RequireDigit = false
	cfg.Security.MaxLoginAttempts = 100
	cfg.Security.MaxRefreshAttempts = 100
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *mockAccountStore, *rbac.MemoryDirectory, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	accounts := newMockAccountStore()
	directory := rbac.NewMemoryDirectory()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(accounts).
		WithDirectory(directory).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, accounts, directory, mr
}

func registerTestAccount(t *testing.T, engine *Engine, tenantID, username string) AccountRecord {
	t.Helper()

	rec, err := engine.Register(context.Background(), tenantID, username, testPassword)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return rec
}

// mockAccountStore is an in-memory AccountStore with per-method error
// injection for store-failure paths.
type mockAccountStore struct {
	mu         sync.RWMutex
	byID       map[string]AccountRecord
	byUsername map[string]string

	failGetByUsername error
	failUpdateStatus  error
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		byID:       make(map[string]AccountRecord),
		byUsername: make(map[string]string),
	}
}

func mockUsernameKey(tenantID, username string) string {
	return tenantID + "\x00" + username
}

func (s *mockAccountStore) Create(_ context.Context, rec AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mockUsernameKey(rec.TenantID, rec.Username)
	if _, exists := s.byUsername[key]; exists {
		return ErrAccountExists
	}
	s.byID[rec.AccountID] = rec
	s.byUsername[key] = rec.AccountID
	return nil
}

func (s *mockAccountStore) GetByUsername(_ context.Context, tenantID, username string) (AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failGetByUsername != nil {
		return AccountRecord{}, s.failGetByUsername
	}
	id, ok := s.byUsername[mockUsernameKey(tenantID, username)]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return s.byID[id], nil
}

func (s *mockAccountStore) GetByID(_ context.Context, accountID string) (AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return rec, nil
}

func (s *mockAccountStore) UpdatePasswordHash(_ context.Context, accountID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	rec.PasswordHash = hash
	rec.UpdatedAt = time.Now()
	s.byID[accountID] = rec
	return nil
}

func (s *mockAccountStore) UpdateStatus(_ context.Context, accountID string, status AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdateStatus != nil {
		return s.failUpdateStatus
	}
	rec, ok := s.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	s.byID[accountID] = rec
	return nil
}

func (s *mockAccountStore) storedHash(accountID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[accountID].PasswordHash
}

func TestHealthReportsRedis(t *testing.T) {
	engine, _, _, mr := newTestEngine(t, testConfig())

	status := engine.Health(context.Background())
	if !status.RedisOK {
		t.Fatalf("expected healthy redis, got err %v", status.Err)
	}

	mr.Close()
	status = engine.Health(context.Background())
	if status.RedisOK {
		t.Fatal("expected unhealthy redis after close")
	}
	if status.Err == nil {
		t.Fatal("expected error after redis close")
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	_, rdb := newTestRedis(t)

	cases := []struct {
		name  string
		build func() (*Engine, error)
	}{
		{"no redis", func() (*Engine, error) {
			return New().WithConfig(testConfig()).
				WithAccountStore(newMockAccountStore()).
				WithDirectory(rbac.NewMemoryDirectory()).
				Build()
		}},
		{"no account store", func() (*Engine, error) {
			return New().WithConfig(testConfig()).
				WithRedis(rdb).
				WithDirectory(rbac.NewMemoryDirectory()).
				Build()
		}},
		{"no directory", func() (*Engine, error) {
			return New().WithConfig(testConfig()).
				WithRedis(rdb).
				WithAccountStore(newMockAccountStore()).
				Build()
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.build(); err == nil {
				t.Fatal("expected build error")
			}
		})
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountStore(newMockAccountStore()).
		WithDirectory(rbac.NewMemoryDirectory())

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected error on builder reuse")
	}
}
