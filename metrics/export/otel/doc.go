// Package otel publishes authcore Engine metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] creates one Int64ObservableCounter per Engine counter and one
// Int64ObservableGauge per latency bucket, fed by a single callback that reads
// [authcore.Engine.MetricsSnapshot] on each collection. The caller owns the
// MeterProvider.
package otel
