// Package prometheus exposes authcore Engine metrics through a
// prometheus/client_golang Collector.
//
// [NewCollector] reads [authcore.Engine.MetricsSnapshot] on every scrape and emits
// const metrics, so no state is duplicated. Counter names follow
// authcore_*_total and the single histogram is authcore_authorize_latency_seconds.
// Callers register the collector on their own registry or use [Handler].
package prometheus
