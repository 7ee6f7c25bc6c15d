// Package prometheus exposes goGate engine metrics as a client_golang
// Collector.
//
// The collector reads the engine snapshot at scrape time; nothing is
// registered globally. Counters are named gogate_*_total and the login
// latency histogram is gogate_login_latency_seconds.
package prometheus
