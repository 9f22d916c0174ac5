package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/idgate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Directory (PostgreSQL) configuration
	Directory DirectoryConfig

	// Session attribute store configuration
	Session SessionConfig

	// Identity pipeline configuration
	Identity IdentityConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DirectoryConfig holds the account directory connection settings
type DirectoryConfig struct {
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int

	// DefaultOrg is assigned to accounts whose draft carries no organization.
	DefaultOrg string
}

// SessionConfig holds the session attribute store settings
type SessionConfig struct {
	// Store is "memory" or "redis".
	Store    string
	RedisURL string

	// SweepInterval is the cron schedule for expiring memory-store entries.
	SweepInterval string
}

// IdentityConfig holds the identity pipeline settings
type IdentityConfig struct {
	// ModeratedSignup makes newly created accounts start pending by default;
	// providers may override it individually.
	ModeratedSignup bool

	// GlobalRoles are granted to every authenticated identity.
	GlobalRoles []string

	// PerProviderRoles are granted to identities from a specific provider.
	PerProviderRoles map[string][]string

	// RolesUppercase and RolesNormalize set the default role cleanup policy.
	RolesUppercase bool
	RolesNormalize bool

	// SessionCacheSize bounds the advisory session identity cache.
	SessionCacheSize int

	// RedirectAllowlist are the prefixes post-login redirect targets must
	// match. Empty disables the redirect feature entirely.
	RedirectAllowlist []string

	// DefaultRedirect is the post-login destination when none was captured.
	DefaultRedirect string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Directory:     loadDirectoryConfig(),
		Session:       loadSessionConfig(),
		Identity:      loadIdentityConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("IDGATE_HOST", "0.0.0.0"),
		Port:            getEnv("IDGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("IDGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("IDGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("IDGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("IDGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("IDGATE_HEALTH_PORT", "9090"),
	}
}

func loadDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		PostgresURL:      getEnv("IDGATE_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("IDGATE_POSTGRES_MAX_CONNS", 20),
		PostgresMinConns: getEnvInt("IDGATE_POSTGRES_MIN_CONNS", 2),
		DefaultOrg:       getEnv("IDGATE_DEFAULT_ORG", ""),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Store:         getEnv("IDGATE_SESSION_STORE", "memory"),
		RedisURL:      getEnv("IDGATE_REDIS_URL", ""),
		SweepInterval: getEnv("IDGATE_SESSION_SWEEP_INTERVAL", "@every 5m"),
	}
}

func loadIdentityConfig() IdentityConfig {
	return IdentityConfig{
		ModeratedSignup:   getEnvBool("IDGATE_MODERATED_SIGNUP", false),
		GlobalRoles:       getEnvList("IDGATE_GLOBAL_ROLES"),
		PerProviderRoles:  getEnvRoleMap("IDGATE_PROVIDER_ROLES"),
		RolesUppercase:    getEnvBool("IDGATE_ROLES_UPPERCASE", true),
		RolesNormalize:    getEnvBool("IDGATE_ROLES_NORMALIZE", true),
		SessionCacheSize:  getEnvInt("IDGATE_SESSION_CACHE_SIZE", 0),
		RedirectAllowlist: getEnvList("IDGATE_REDIRECT_ALLOWLIST"),
		DefaultRedirect:   getEnv("IDGATE_DEFAULT_REDIRECT", "/"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("IDGATE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("IDGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("IDGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("IDGATE_OTEL_ENDPOINT", ""),
		OTelServiceName:    getEnv("IDGATE_OTEL_SERVICE_NAME", "idgate"),
		OTelServiceVersion: getEnv("IDGATE_OTEL_SERVICE_VERSION", "dev"),
		OTelInsecure:       getEnvBool("IDGATE_OTEL_INSECURE", false),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Directory.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis session store")
		}
	default:
		return fmt.Errorf("invalid session store: %s (must be memory or redis)", c.Session.Store)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnvRoleMap parses "provider1=ROLE_A;ROLE_B,provider2=ROLE_C" into a
// per-provider role grant map
func getEnvRoleMap(key string) map[string][]string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	grants := make(map[string][]string)
	for _, entry := range strings.Split(value, ",") {
		provider, rolesRaw, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || provider == "" {
			continue
		}
		var roleNames []string
		for _, role := range strings.Split(rolesRaw, ";") {
			if role = strings.TrimSpace(role); role != "" {
				roleNames = append(roleNames, role)
			}
		}
		if len(roleNames) > 0 {
			grants[provider] = roleNames
		}
	}
	return grants
}
