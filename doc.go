// Package authgate is a dual-mode authentication and tenant-scoped
// authorization core. Browser clients authenticate into Redis-backed
// server-side sessions with sliding expiry; API and mobile clients
// receive short-lived signed access tokens paired with single-use
// rotating refresh tokens whose reuse triggers family-wide revocation.
//
// Every credential is bound to exactly one tenant, and the tenant on a
// validated credential is the only tenant identity the rest of the
// system may trust. Authorization resolves roles and per-account
// overrides fresh on every check, with DENY overrides beating every
// grant path.
//
// Construct an [Engine] through [New]:
//
//	engine, err := authgate.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithAccountStore(store).
//		WithDirectory(store).
//		WithAuditSink(sink).
//		Build()
package authgate
