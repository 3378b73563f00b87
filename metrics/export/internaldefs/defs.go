package internaldefs

import (
	authgate "github.com/jswierad/authgate"
)

// CounterDef maps an engine metric ID to its exported name and help
// text. The set is shared by every exporter so names never diverge.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef maps a histogram metric ID to its exported name.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricLockoutTriggered, Name: "authgate_lockout_triggered_total", Help: "Automatic lockouts armed by failed logins."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Created sessions."},
	{ID: authgate.MetricSessionInvalidated, Name: "authgate_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Single-session logout operations."},
	{ID: authgate.MetricLogoutAll, Name: "authgate_logout_all_total", Help: "Logout-everywhere operations."},
	{ID: authgate.MetricTokenIssued, Name: "authgate_token_issued_total", Help: "Issued access tokens."},
	{ID: authgate.MetricTokenVerifyFailure, Name: "authgate_token_verify_failure_total", Help: "Failed access token verifications."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authgate.MetricRefreshReuseDetected, Name: "authgate_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authgate.MetricRefreshRateLimited, Name: "authgate_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authgate.MetricPermissionDenied, Name: "authgate_permission_denied_total", Help: "Denied permission checks."},
	{ID: authgate.MetricRegisterSuccess, Name: "authgate_register_success_total", Help: "Successful account registrations."},
	{ID: authgate.MetricRegisterDuplicate, Name: "authgate_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authgate.MetricPasswordChangeSuccess, Name: "authgate_password_change_success_total", Help: "Successful password changes."},
	{ID: authgate.MetricPasswordChangeInvalidOld, Name: "authgate_password_change_invalid_old_total", Help: "Password changes with invalid current password."},
	{ID: authgate.MetricAccountDisabled, Name: "authgate_account_disabled_total", Help: "Account disable operations."},
	{ID: authgate.MetricAccountLocked, Name: "authgate_account_locked_total", Help: "Administrative account lock operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Credential validation latency histogram."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// exporter width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
