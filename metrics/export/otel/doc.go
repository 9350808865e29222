// Package otel publishes goSession counters through an OpenTelemetry meter.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. The caller owns the
// MeterProvider.
package otel
