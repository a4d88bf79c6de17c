package internaldefs

import (
	goPasskey "github.com/karmoybt/goPasskey"
)

// CounterDef binds a core metric id to its exported name and help text.
type CounterDef struct {
	ID   goPasskey.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram id to its exported name and help text.
type HistogramDef struct {
	ID   goPasskey.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in snapshot order.
var CounterDefs = []CounterDef{
	{ID: goPasskey.MetricRegistrationStarted, Name: "gopasskey_registration_started_total", Help: "Started registration ceremonies."},
	{ID: goPasskey.MetricRegistrationSuccess, Name: "gopasskey_registration_success_total", Help: "Completed registration ceremonies."},
	{ID: goPasskey.MetricRegistrationFailure, Name: "gopasskey_registration_failure_total", Help: "Failed registration ceremonies."},
	{ID: goPasskey.MetricLoginChallengeIssued, Name: "gopasskey_login_challenge_issued_total", Help: "Issued authentication challenges."},
	{ID: goPasskey.MetricLoginSuccess, Name: "gopasskey_login_success_total", Help: "Successful authentications."},
	{ID: goPasskey.MetricLoginFailure, Name: "gopasskey_login_failure_total", Help: "Failed authentications."},
	{ID: goPasskey.MetricUnknownHandleProbe, Name: "gopasskey_unknown_handle_probe_total", Help: "Authentication starts for handles with no identity."},
	{ID: goPasskey.MetricChallengeExpired, Name: "gopasskey_challenge_expired_total", Help: "Ceremony finishes rejected for missing or expired challenges."},
	{ID: goPasskey.MetricCounterRegression, Name: "gopasskey_counter_regression_total", Help: "Assertions rejected for non-advancing signature counters."},
	{ID: goPasskey.MetricSessionCreated, Name: "gopasskey_session_created_total", Help: "Created sessions."},
	{ID: goPasskey.MetricSessionValidated, Name: "gopasskey_session_validated_total", Help: "Successful session validations."},
	{ID: goPasskey.MetricSessionRejected, Name: "gopasskey_session_rejected_total", Help: "Rejected session validations."},
	{ID: goPasskey.MetricLogout, Name: "gopasskey_logout_total", Help: "Single-session logout operations."},
	{ID: goPasskey.MetricLogoutAll, Name: "gopasskey_logout_all_total", Help: "Logout-all operations."},
	{ID: goPasskey.MetricRateLimitHit, Name: "gopasskey_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goPasskey.MetricValidateLatency, Name: "gopasskey_validate_latency_seconds", Help: "Session validation latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds.
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

// HistogramBoundSuffix mirrors HistogramBounds with identifier-safe names
// for exporters that cannot carry labels.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
