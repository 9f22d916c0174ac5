// Package observability provides the gateway's structured logging,
// Prometheus metrics, OpenTelemetry tracing setup, and health probes.
//
// Logging is structured JSON over stdlib slog. Metrics cover the login
// pipeline: logins by provider and outcome, account creations, pending
// rejections, directory operation latency, and session-cache effectiveness.
package observability
