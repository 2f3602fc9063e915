package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one Engine counter for export.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one Engine latency histogram for export.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricAuthenticateSuccess, Name: "authcore_authenticate_success_total", Help: "Successful password authentications."},
	{ID: authcore.MetricAuthenticateFailure, Name: "authcore_authenticate_failure_total", Help: "Failed password authentications."},
	{ID: authcore.MetricAuthorizeSuccess, Name: "authcore_authorize_success_total", Help: "Access tokens resolved to an identity."},
	{ID: authcore.MetricAuthorizeFailure, Name: "authcore_authorize_failure_total", Help: "Access tokens rejected or unresolved."},
	{ID: authcore.MetricCacheHit, Name: "authcore_cache_hit_total", Help: "Identity snapshot cache hits."},
	{ID: authcore.MetricCacheMiss, Name: "authcore_cache_miss_total", Help: "Identity snapshot cache misses."},
	{ID: authcore.MetricCacheUnavailable, Name: "authcore_cache_unavailable_total", Help: "Snapshot cache operations that failed against the backend."},
	{ID: authcore.MetricSessionIssued, Name: "authcore_session_issued_total", Help: "Token pairs issued by IssueSession."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Refresh token reuse detections that revoked a session."},
	{ID: authcore.MetricRefreshRaceLost, Name: "authcore_refresh_race_lost_total", Help: "Refresh attempts that lost a concurrent rotation."},
	{ID: authcore.MetricConfirmationIssued, Name: "authcore_confirmation_issued_total", Help: "Email confirmation tokens issued."},
	{ID: authcore.MetricEmailConfirmed, Name: "authcore_email_confirmed_total", Help: "Identities moved to confirmed."},
	{ID: authcore.MetricSignupSuccess, Name: "authcore_signup_success_total", Help: "Identities created by Signup."},
	{ID: authcore.MetricSignupDuplicate, Name: "authcore_signup_duplicate_total", Help: "Signups rejected because the email exists."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricAccountDeleted, Name: "authcore_account_deleted_total", Help: "Identities deleted."},
	{ID: authcore.MetricPasswordUpgraded, Name: "authcore_password_upgraded_total", Help: "Password hashes re-hashed on login."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthorizeLatency, Name: "authcore_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last Engine
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for instrument names.
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

// NormalizeBuckets copies raw into a fixed-size array, zero padding when short.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
