package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "gogate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var CounterDefs = []CounterDef{
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Successful logins."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Logins rejected as invalid credentials."},
	{ID: goGate.MetricLoginLocked, Name: "gogate_login_locked_total", Help: "Logins rejected because the account was locked."},
	{ID: goGate.MetricLockoutTriggered, Name: "gogate_lockout_triggered_total", Help: "Failures that reached the lockout threshold."},
	{ID: goGate.MetricRefreshSuccess, Name: "gogate_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goGate.MetricRefreshFailure, Name: "gogate_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Logout operations."},
	{ID: goGate.MetricAuthorizeAllowed, Name: "gogate_authorize_allowed_total", Help: "Operations permitted by the evaluator."},
	{ID: goGate.MetricAuthorizeDenied, Name: "gogate_authorize_denied_total", Help: "Operations denied by the evaluator."},
	{ID: goGate.MetricUnauthenticated, Name: "gogate_unauthenticated_total", Help: "Requests without a valid access token."},
	{ID: goGate.MetricStoreUnavailable, Name: "gogate_store_unavailable_total", Help: "Operations failed closed on store errors."},
	{ID: goGate.MetricAccountUnlocked, Name: "gogate_account_unlocked_total", Help: "Administrative account unlocks."},
	{ID: goGate.MetricPasswordUpgraded, Name: "gogate_password_upgraded_total", Help: "Password hashes re-encoded after login."},
}

var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricLoginLatency, Name: "gogate_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding
// +Inf. They match the engine's millisecond buckets.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters that
// flatten buckets into separate instruments.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing
// buckets and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals; the last
// element is the sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
