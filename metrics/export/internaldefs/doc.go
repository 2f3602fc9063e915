// Package internaldefs holds the metric names, help strings and latency bucket
// bounds shared by the Prometheus and OpenTelemetry exporters.
//
// Both exporters read the same definitions, so a rename here changes every
// exported series at once. Nothing in this package performs I/O.
package internaldefs
