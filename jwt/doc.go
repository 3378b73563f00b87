// Package jwt signs and verifies the stateless access tokens used by
// API and mobile clients. Verification needs no storage round-trip, so
// token revocation is bounded by the short access TTL; durable
// revocation lives at the session and refresh-family layer.
package jwt
