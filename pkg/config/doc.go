// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	IDGATE_HOST="0.0.0.0"
//	IDGATE_PORT="8080"
//	IDGATE_HEALTH_PORT="8081"
//	IDGATE_READ_TIMEOUT="30s"
//	IDGATE_WRITE_TIMEOUT="30s"
//
// Directory settings:
//
//	IDGATE_POSTGRES_URL="postgres://localhost/idgate"
//	IDGATE_POSTGRES_MAX_CONNS="20"
//	IDGATE_DEFAULT_ORG="example"
//
// Session settings:
//
//	IDGATE_SESSION_STORE="memory"  # memory, redis
//	IDGATE_REDIS_URL="redis://localhost:6379"
//
// Identity settings:
//
//	IDGATE_MODERATED_SIGNUP="false"
//	IDGATE_GLOBAL_ROLES="ROLE_USER"
//	IDGATE_ROLES_UPPERCASE="true"
//	IDGATE_REDIRECT_ALLOWLIST="https://geo.example.org/"
//
// Observability settings:
//
//	IDGATE_LOG_LEVEL="info"  # debug, info, warn, error
//	IDGATE_METRICS_ENABLED="true"
//	IDGATE_OTEL_ENABLED="true"
//	IDGATE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Related Packages
//
//   - pkg/accounts: Uses moderation and directory configuration
//   - pkg/observability: Uses observability configuration
package config
