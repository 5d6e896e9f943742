// Package config centralizes the FACET MCP server configuration. Settings are
// loaded from MCP_* environment variables with defaults matching the original
// deployment surface; the dispatch core consumes the resulting Config value
// and never reads the environment itself.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds transport and lifecycle settings.
type ServerConfig struct {
	Host              string
	Port              int
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	PingInterval      time.Duration
	PingTimeout       time.Duration
	// CloseTimeout bounds the grace period for in-flight dispatches during
	// shutdown.
	CloseTimeout time.Duration
}

// ToolConfig holds tool-specific settings.
type ToolConfig struct {
	EnabledTools         []string
	AllowedLenses        []string
	MaxLensChainLength   int
	MaxTemplateVariables int
}

// SecurityConfig holds request-policy settings.
type SecurityConfig struct {
	EnableRateLimiting   bool
	MaxRequestsPerMinute int
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string
	Format string // json or text
}

// Config aggregates all server configuration.
type Config struct {
	Server   ServerConfig
	Tools    ToolConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// DefaultLenses is the lens allowlist applied when MCP_ALLOWED_LENSES is
// unset.
var DefaultLenses = []string{
	"trim", "dedent", "squeeze_spaces", "normalize_newlines",
	"json_minify", "json_parse", "strip_markdown", "limit",
}

// DefaultTools is the tool set enabled when MCP_ENABLED_TOOLS is unset.
var DefaultTools = []string{"execute", "apply_lenses", "validate_schema"}

// Default returns the baseline configuration without consulting the
// environment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "localhost",
			Port:              3000,
			ConnectionTimeout: 30 * time.Second,
			RequestTimeout:    60 * time.Second,
			PingInterval:      30 * time.Second,
			PingTimeout:       10 * time.Second,
			CloseTimeout:      5 * time.Second,
		},
		Tools: ToolConfig{
			EnabledTools:         DefaultTools,
			AllowedLenses:        DefaultLenses,
			MaxLensChainLength:   10,
			MaxTemplateVariables: 50,
		},
		Security: SecurityConfig{
			EnableRateLimiting:   true,
			MaxRequestsPerMinute: 60,
		},
		Logging: LoggingConfig{Level: "INFO", Format: "json"},
	}
}

// Load builds the configuration from MCP_* environment variables, falling
// back to Default for anything unset.
func Load() Config {
	cfg := Default()

	cfg.Server.Host = getEnv("MCP_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("MCP_PORT", cfg.Server.Port)
	cfg.Server.ConnectionTimeout = getEnvSeconds("MCP_CONNECTION_TIMEOUT", cfg.Server.ConnectionTimeout)
	cfg.Server.RequestTimeout = getEnvSeconds("MCP_REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Server.PingInterval = getEnvSeconds("MCP_PING_INTERVAL", cfg.Server.PingInterval)
	cfg.Server.PingTimeout = getEnvSeconds("MCP_PING_TIMEOUT", cfg.Server.PingTimeout)
	cfg.Server.CloseTimeout = getEnvSeconds("MCP_CLOSE_TIMEOUT", cfg.Server.CloseTimeout)

	if v := os.Getenv("MCP_ENABLED_TOOLS"); v != "" {
		cfg.Tools.EnabledTools = splitCSV(v)
	}
	if v := os.Getenv("MCP_ALLOWED_LENSES"); v != "" {
		cfg.Tools.AllowedLenses = splitCSV(v)
	}
	cfg.Tools.MaxLensChainLength = getEnvInt("MCP_MAX_LENS_CHAIN_LENGTH", cfg.Tools.MaxLensChainLength)
	cfg.Tools.MaxTemplateVariables = getEnvInt("MCP_MAX_TEMPLATE_VARIABLES", cfg.Tools.MaxTemplateVariables)

	cfg.Security.EnableRateLimiting = getEnvBool("MCP_ENABLE_RATE_LIMITING", cfg.Security.EnableRateLimiting)
	cfg.Security.MaxRequestsPerMinute = getEnvInt("MCP_MAX_REQUESTS_PER_MINUTE", cfg.Security.MaxRequestsPerMinute)

	cfg.Logging.Level = getEnv("MCP_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("MCP_LOG_FORMAT", cfg.Logging.Format)

	return cfg
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true")
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
