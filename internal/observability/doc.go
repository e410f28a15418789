// Package observability exposes Prometheus metrics for hop activity and
// configures OpenTelemetry tracing.
package observability
