package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/jswierad/authgate/internal/audit"
	"github.com/jswierad/authgate/internal/limiters"
	"github.com/jswierad/authgate/internal/rate"
	"github.com/jswierad/authgate/jwt"
	"github.com/jswierad/authgate/password"
	"github.com/jswierad/authgate/rbac"
	"github.com/jswierad/authgate/refresh"
	"github.com/jswierad/authgate/session"
)

// Builder assembles an [Engine]. A Builder is single-use; Build returns
// an error on reuse.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	directory rbac.Directory
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration. The struct is cloned so
// later caller mutations have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions, refresh families,
// lockout state, and throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the durable account store.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithDirectory sets the role and override directory used for
// permission resolution.
func (b *Builder) WithDirectory(dir rbac.Directory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles validation latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates configuration and dependencies and assembles the
// Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		accounts:  b.accounts,
		directory: b.directory,
		resolver:  rbac.NewResolver(b.directory),
	}

	engine.sessions = session.NewStore(b.redis, session.Config{
		Prefix:      cfg.Session.RedisPrefix,
		Sliding:     cfg.Session.SlidingExpiration,
		IdleTTL:     cfg.Session.IdleTTL,
		AbsoluteTTL: cfg.Session.AbsoluteLifetime,
	})

	engine.refresh = refresh.NewStore(b.redis, cfg.Refresh.FamilyTTL)

	engine.lockout = limiters.NewLockoutGuard(b.redis, limiters.LockoutConfig{
		Enabled:     cfg.Lockout.Enabled,
		Threshold:   cfg.Lockout.Threshold,
		Window:      cfg.Lockout.Window,
		BaseBackoff: cfg.Lockout.BaseBackoff,
		MaxBackoff:  cfg.Lockout.MaxBackoff,
	})

	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:        cfg.Security.EnableIPThrottle,
		EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
		MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
		MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
	})

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.metrics = NewMetrics(cfg.Metrics)

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		Pepper:      cloneBytes(cfg.Password.Pepper),
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	engine.policy = password.Policy{
		MinLength:      cfg.Password.MinLength,
		RequireUpper:   cfg.Password.RequireUpper,
		RequireLower:   cfg.Password.RequireLower,
		RequireDigit:   cfg.Password.RequireDigit,
		RequireSymbol:  cfg.Password.RequireSymbol,
		MaxLengthBytes: 1024,
	}

	engine.gate = password.NewGate(cfg.Password.MaxConcurrentHashes)

	dummy, err := hasher.Hash(newDummySecret())
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
