// Package prometheus exposes goSession counters through
// prometheus/client_golang.
//
// [NewCollector] returns a prometheus.Collector that callers register with
// their own registry, or mount directly with [Collector.Handler]. Counters are
// named gosession_*_total; the one histogram is
// gosession_validate_latency_seconds.
package prometheus
