package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// Namespace prefixes every exported metric name.
const Namespace = "gosession"

// AuditDroppedName is the counter fed from Manager.AuditDropped.
const (
	AuditDroppedName = Namespace + "_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins, maintenance excluded."},
	{ID: goSession.MetricLoginMaintenance, Name: "gosession_login_maintenance_total", Help: "Logins refused because the API is in maintenance."},
	{ID: goSession.MetricLoginRolesFallback, Name: "gosession_login_roles_fallback_total", Help: "Strict logins whose roles lookup failed."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Refresh calls that returned a new access token."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refresh calls that failed."},
	{ID: goSession.MetricRefreshShared, Name: "gosession_refresh_shared_total", Help: "Callers that joined a refresh already in flight."},
	{ID: goSession.MetricAccountDeleted, Name: "gosession_account_deleted_total", Help: "Refreshes refused because the account was deleted."},
	{ID: goSession.MetricSessionRestored, Name: "gosession_session_restored_total", Help: "Namespaced sessions promoted to active by navigation."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Validations that found the session past its timeout."},
	{ID: goSession.MetricSessionInvalidated, Name: "gosession_session_invalidated_total", Help: "Sessions cleared by the manager."},
	{ID: goSession.MetricRoleSwitch, Name: "gosession_role_switch_total", Help: "Successful role switches."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logout and clear-all operations."},
	{ID: goSession.MetricLoginRedirect, Name: "gosession_login_redirect_total", Help: "Redirects to the login screen."},
	{ID: goSession.MetricRequestRetried, Name: "gosession_request_retried_total", Help: "Business requests retried after a 401."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "ValidateSession latency."},
}

// HistogramBoundSuffix names each bucket in instrument names, "+Inf" last.
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

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	bounds := goSession.HistogramBounds()
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = b.Seconds()
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
