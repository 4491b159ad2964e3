// Package diagnostics starts a gops agent (and pprof server on demand)
// when the binary is built with the gops tag:
//
//	go build -tags gops ./cmd/statsd-riemann
package diagnostics
