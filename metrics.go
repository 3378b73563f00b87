package authgate

import internalmetrics "github.com/jswierad/authgate/internal/metrics"

// MetricID identifies an engine counter or histogram slot.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess             = internalmetrics.MetricLoginSuccess
	MetricLoginFailure             = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited         = internalmetrics.MetricLoginRateLimited
	MetricLockoutTriggered         = internalmetrics.MetricLockoutTriggered
	MetricSessionCreated           = internalmetrics.MetricSessionCreated
	MetricSessionInvalidated       = internalmetrics.MetricSessionInvalidated
	MetricLogout                   = internalmetrics.MetricLogout
	MetricLogoutAll                = internalmetrics.MetricLogoutAll
	MetricTokenIssued              = internalmetrics.MetricTokenIssued
	MetricTokenVerifyFailure       = internalmetrics.MetricTokenVerifyFailure
	MetricRefreshSuccess           = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure           = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected     = internalmetrics.MetricRefreshReuseDetected
	MetricRefreshRateLimited       = internalmetrics.MetricRefreshRateLimited
	MetricPermissionDenied         = internalmetrics.MetricPermissionDenied
	MetricRegisterSuccess          = internalmetrics.MetricRegisterSuccess
	MetricRegisterDuplicate        = internalmetrics.MetricRegisterDuplicate
	MetricPasswordChangeSuccess    = internalmetrics.MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld = internalmetrics.MetricPasswordChangeInvalidOld
	MetricAccountDisabled          = internalmetrics.MetricAccountDisabled
	MetricAccountLocked            = internalmetrics.MetricAccountLocked
	MetricValidateLatency          = internalmetrics.MetricValidateLatency
	MetricIDCount                  = internalmetrics.MetricIDCount
)

// MetricsSnapshot returns a point-in-time deep copy of all engine
// metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.TakeSnapshot()
}
