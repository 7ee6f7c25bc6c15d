// Package otel exposes goGate engine metrics as OpenTelemetry observable
// instruments on a caller-supplied Meter.
//
// Counters become Int64ObservableCounter instruments named as in the
// Prometheus exporter. The latency histogram is flattened into one gauge per
// cumulative bucket plus a count gauge, since observable histograms do not
// exist in the metric API.
package otel
