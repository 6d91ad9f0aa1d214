// Package metrics exposes Prometheus metrics for the engine's API on a
// dedicated listener, kept separate from the service traffic.
package metrics
