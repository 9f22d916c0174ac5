package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/idgate/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("IDGATE_POSTGRES_URL", "postgres://localhost/idgate")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.False(t, cfg.Identity.ModeratedSignup)
	assert.True(t, cfg.Identity.RolesUppercase)
	assert.Equal(t, "/", cfg.Identity.DefaultRedirect)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("IDGATE_POSTGRES_URL", "postgres://db.internal/idgate")
	t.Setenv("IDGATE_PORT", "8888")
	t.Setenv("IDGATE_MODERATED_SIGNUP", "true")
	t.Setenv("IDGATE_GLOBAL_ROLES", "ROLE_USER, ROLE_GEO")
	t.Setenv("IDGATE_PROVIDER_ROLES", "acme=ROLE_A;ROLE_B,beta=ROLE_C")
	t.Setenv("IDGATE_REDIRECT_ALLOWLIST", "https://geo.example.org/,/local")
	t.Setenv("IDGATE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8888", cfg.Server.Port)
	assert.True(t, cfg.Identity.ModeratedSignup)
	assert.Equal(t, []string{"ROLE_USER", "ROLE_GEO"}, cfg.Identity.GlobalRoles)
	assert.Equal(t, map[string][]string{
		"acme": {"ROLE_A", "ROLE_B"},
		"beta": {"ROLE_C"},
	}, cfg.Identity.PerProviderRoles)
	assert.Equal(t, []string{"https://geo.example.org/", "/local"}, cfg.Identity.RedirectAllowlist)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestValidate_RequiresPostgresURL(t *testing.T) {
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "postgres URL")
}

func TestValidate_RedisStoreNeedsURL(t *testing.T) {
	t.Setenv("IDGATE_POSTGRES_URL", "postgres://localhost/idgate")
	t.Setenv("IDGATE_SESSION_STORE", "redis")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "redis URL")
}

func TestValidate_RejectsEqualPorts(t *testing.T) {
	t.Setenv("IDGATE_POSTGRES_URL", "postgres://localhost/idgate")
	t.Setenv("IDGATE_PORT", "9090")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "must be different")
}

func TestValidate_OTelNeedsEndpoint(t *testing.T) {
	t.Setenv("IDGATE_POSTGRES_URL", "postgres://localhost/idgate")
	t.Setenv("IDGATE_OTEL_ENABLED", "true")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "OpenTelemetry endpoint")
}
