package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.PingInterval)

	assert.Equal(t, []string{"execute", "apply_lenses", "validate_schema"}, cfg.Tools.EnabledTools)
	assert.Len(t, cfg.Tools.AllowedLenses, 8)
	assert.Equal(t, 10, cfg.Tools.MaxLensChainLength)
	assert.Equal(t, 50, cfg.Tools.MaxTemplateVariables)

	assert.True(t, cfg.Security.EnableRateLimiting)
	assert.Equal(t, 60, cfg.Security.MaxRequestsPerMinute)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MCP_HOST", "0.0.0.0")
	t.Setenv("MCP_PORT", "8080")
	t.Setenv("MCP_REQUEST_TIMEOUT", "15")
	t.Setenv("MCP_ENABLED_TOOLS", "apply_lenses, validate_schema")
	t.Setenv("MCP_ALLOWED_LENSES", "trim,dedent")
	t.Setenv("MCP_MAX_LENS_CHAIN_LENGTH", "3")
	t.Setenv("MCP_ENABLE_RATE_LIMITING", "false")
	t.Setenv("MCP_LOG_LEVEL", "DEBUG")

	cfg := Load()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"apply_lenses", "validate_schema"}, cfg.Tools.EnabledTools)
	assert.Equal(t, []string{"trim", "dedent"}, cfg.Tools.AllowedLenses)
	assert.Equal(t, 3, cfg.Tools.MaxLensChainLength)
	assert.False(t, cfg.Security.EnableRateLimiting)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MCP_PORT", "not-a-number")
	t.Setenv("MCP_MAX_REQUESTS_PER_MINUTE", "sixty")

	cfg := Load()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Security.MaxRequestsPerMinute)
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a , , b ,"))
	assert.Empty(t, splitCSV(" , "))
}
