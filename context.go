package authgate

import "context"

type clientIPContextKey struct{}
type deviceFingerprintContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses
// it for per-IP throttling and audit records. It is never used to
// derive tenant or account identity.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceFingerprint attaches an opaque client fingerprint to ctx.
// Only its SHA-256 digest is stored alongside the session, for audit
// correlation; it does not gate validation.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, deviceFingerprintContextKey{}, fingerprint)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func deviceFingerprintFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	fingerprint, _ := ctx.Value(deviceFingerprintContextKey{}).(string)
	return fingerprint
}
