// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults.
const (
	DefaultRelayAddr            = "127.0.0.1:8080"
	DefaultRelayReadTimeout     = 30 * time.Second
	DefaultRelayMaxRequestBytes = 1 << 20
	DefaultHistoryRetention     = 7 * 24 * time.Hour
	DefaultHistoryPruneSchedule = "@hourly"
)

// AuthConfig holds bearer-token authentication for the HTTP API.
type AuthConfig struct {
	IssuerURL string // OIDC issuer URL; enables OIDC validation
	JWTSecret string // HS256 shared secret for local/dev JWT auth
	Audience  string // required JWT audience claim
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// Enabled returns true when any bearer validation is configured.
func (a *AuthConfig) Enabled() bool {
	return a.IssuerURL != "" || a.JWTSecret != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL != "" && a.JWTSecret != "" {
		return fmt.Errorf("set only one of AUTH_ISSUER_URL or AUTH_JWT_SECRET")
	}
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// Config holds the configuration for the relay, the HTTP API and the
// history store.
type Config struct {
	RelayAddr            string        // relay TCP listen address
	RelayReadTimeout     time.Duration // max wait for a request terminator; 0 disables
	RelayMaxRequestBytes int           // max bytes per request, terminator excluded
	RelayEcho            bool          // echo non-terminating chunks back to clients

	HTTPAddr string // HTTP API listen address; empty disables the API

	LogLevel  string // debug, info, warn, error (default "info")
	LogFormat string // text or json (default "text")

	// Rate limiting, per client IP, shared by relay and HTTP.
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	HistoryDBPath        string        // SQLite file; empty disables history
	HistoryRetention     time.Duration // entries older than this are pruned
	HistoryPruneSchedule string        // cron spec for pruning

	Auth AuthConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		RelayAddr:            DefaultRelayAddr,
		RelayReadTimeout:     DefaultRelayReadTimeout,
		RelayMaxRequestBytes: DefaultRelayMaxRequestBytes,
		LogLevel:             "info",
		LogFormat:            "text",
		RateLimitRPS:         100,
		RateLimitBurst:       200,
		CORSAllowedOrigins:   []string{"*"},
		HistoryRetention:     DefaultHistoryRetention,
		HistoryPruneSchedule: DefaultHistoryPruneSchedule,
	}
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// HistoryEnabled returns true when a history database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}

// Validate checks the configuration for values the servers cannot run with.
func (c *Config) Validate() error {
	if c.RelayAddr == "" {
		return fmt.Errorf("RELAY_ADDR must not be empty")
	}
	if c.RelayReadTimeout < 0 {
		return fmt.Errorf("RELAY_READ_TIMEOUT must not be negative")
	}
	if c.RelayMaxRequestBytes <= 0 {
		return fmt.Errorf("RELAY_MAX_REQUEST_BYTES must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.HistoryEnabled() {
		if c.HistoryRetention <= 0 {
			return fmt.Errorf("HISTORY_RETENTION must be positive")
		}
		if _, err := cron.ParseStandard(c.HistoryPruneSchedule); err != nil {
			return fmt.Errorf("HISTORY_PRUNE_SCHEDULE: %w", err)
		}
	}
	return c.Auth.Validate()
}

// LoadFromEnv loads configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load is LoadFromEnv with an explicit config file path (YAML, or TOML by
// extension); an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr != "" && !cfg.Auth.Enabled() {
		cfg.Warnings = append(cfg.Warnings, "HTTP API authentication is not configured; set AUTH_JWT_SECRET or AUTH_ISSUER_URL")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.RelayAddr, "RELAY_ADDR")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.HistoryDBPath, "HISTORY_DB_PATH")
	setString(&c.HistoryPruneSchedule, "HISTORY_PRUNE_SCHEDULE")
	setString(&c.Auth.IssuerURL, "AUTH_ISSUER_URL")
	setString(&c.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&c.Auth.Audience, "AUTH_AUDIENCE")
	c.RelayEcho = parseBoolEnvDefault("RELAY_ECHO", c.RelayEcho)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"RELAY_READ_TIMEOUT", &c.RelayReadTimeout},
		{"HISTORY_RETENTION", &c.HistoryRetention},
	} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	for _, n := range []struct {
		key string
		dst *int
	}{
		{"RELAY_MAX_REQUEST_BYTES", &c.RelayMaxRequestBytes},
		{"RATE_LIMIT_BURST", &c.RateLimitBurst},
	} {
		if v := os.Getenv(n.key); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", n.key, err)
			}
			*n.dst = parsed
		}
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
