package authgate

import (
	"errors"
	"time"
)

// Config is the root engine configuration. Instances are configured at
// build time and treated as immutable afterwards; Build clones the
// struct so later caller mutations have no effect.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig controls access-token issuance for API and mobile clients.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// SessionConfig controls browser-session lifetime semantics.
type SessionConfig struct {
	RedisPrefix       string
	SlidingExpiration bool
	IdleTTL           time.Duration // sliding window extended on each validation
	AbsoluteLifetime  time.Duration // hard cap measured from creation
}

// RefreshConfig controls refresh-token families.
type RefreshConfig struct {
	FamilyTTL time.Duration // absolute family lifetime, never extended by rotation
}

// PasswordConfig controls argon2id hashing, the server-side pepper, the
// hashing concurrency gate, and the entropy policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	Pepper         []byte // server-side secret, never persisted
	UpgradeOnLogin bool

	MaxConcurrentHashes int64
	HashTimeout         time.Duration

	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// LockoutConfig controls the per-account failed-login lockout.
type LockoutConfig struct {
	Enabled     bool
	Threshold   int
	Window      time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// SecurityConfig controls request throttling.
type SecurityConfig struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration the builder starts from.
// Deployments must still supply JWT key material and a password pepper.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:       "as",
			SlidingExpiration: true,
			IdleTTL:           30 * time.Minute,
			AbsoluteLifetime:  12 * time.Hour,
		},
		Refresh: RefreshConfig{
			FamilyTTL: 30 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:              65536,
			Time:                3,
			Parallelism:         2,
			SaltLength:          16,
			KeyLength:           32,
			UpgradeOnLogin:      true,
			MaxConcurrentHashes: 16,
			HashTimeout:         2 * time.Second,
			MinLength:           10,
			RequireUpper:        true,
			RequireLower:        true,
			RequireDigit:        true,
		},
		Lockout: LockoutConfig{
			Enabled:     true,
			Threshold:   5,
			Window:      15 * time.Minute,
			BaseBackoff: time.Minute,
			MaxBackoff:  time.Hour,
		},
		Security: SecurityConfig{
			EnableIPThrottle:        true,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        20,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Password.Pepper = cloneBytes(cfg.Password.Pepper)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks internal consistency. Build calls it after applying
// defaults, so zero values that defaults fill in do not fail here.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires PrivateKey >= 256 bits")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Session
	if c.Session.IdleTTL <= 0 {
		return errors.New("Session IdleTTL must be > 0")
	}
	if c.Session.AbsoluteLifetime <= 0 {
		return errors.New("Session AbsoluteLifetime must be > 0")
	}
	if c.Session.AbsoluteLifetime < c.Session.IdleTTL {
		return errors.New("Session AbsoluteLifetime must be >= IdleTTL")
	}

	// Refresh
	if c.Refresh.FamilyTTL <= 0 {
		return errors.New("Refresh FamilyTTL must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if len(c.Password.Pepper) < 16 {
		return errors.New("Password Pepper must be >= 16 bytes")
	}
	if c.Password.HashTimeout <= 0 {
		return errors.New("Password HashTimeout must be > 0")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("Lockout Threshold must be > 0")
		}
		if c.Lockout.Window <= 0 {
			return errors.New("Lockout Window must be > 0")
		}
		if c.Lockout.BaseBackoff <= 0 {
			return errors.New("Lockout BaseBackoff must be > 0")
		}
		if c.Lockout.MaxBackoff < c.Lockout.BaseBackoff {
			return errors.New("Lockout MaxBackoff must be >= BaseBackoff")
		}
	}

	// Security
	if c.Security.EnableIPThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0 when IP throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0 when IP throttle is enabled")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
