package authcore

import (
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
)

// MetricID identifies an Engine counter or histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricAuthenticateSuccess  = internalmetrics.MetricAuthenticateSuccess
	MetricAuthenticateFailure  = internalmetrics.MetricAuthenticateFailure
	MetricAuthorizeSuccess     = internalmetrics.MetricAuthorizeSuccess
	MetricAuthorizeFailure     = internalmetrics.MetricAuthorizeFailure
	MetricCacheHit             = internalmetrics.MetricCacheHit
	MetricCacheMiss            = internalmetrics.MetricCacheMiss
	MetricCacheUnavailable     = internalmetrics.MetricCacheUnavailable
	MetricSessionIssued        = internalmetrics.MetricSessionIssued
	MetricRefreshSuccess       = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure       = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected = internalmetrics.MetricRefreshReuseDetected
	MetricRefreshRaceLost      = internalmetrics.MetricRefreshRaceLost
	MetricConfirmationIssued   = internalmetrics.MetricConfirmationIssued
	MetricEmailConfirmed       = internalmetrics.MetricEmailConfirmed
	MetricSignupSuccess        = internalmetrics.MetricSignupSuccess
	MetricSignupDuplicate      = internalmetrics.MetricSignupDuplicate
	MetricLogout               = internalmetrics.MetricLogout
	MetricAccountDeleted       = internalmetrics.MetricAccountDeleted
	MetricPasswordUpgraded     = internalmetrics.MetricPasswordUpgraded
	MetricAuthorizeLatency     = internalmetrics.MetricAuthorizeLatency
)

// MetricsSnapshot is a point-in-time copy of Engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot

func newMetrics(cfg MetricsConfig) *internalmetrics.Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
