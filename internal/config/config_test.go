package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"CONFIG_FILE", "RELAY_ADDR", "HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	"RELAY_READ_TIMEOUT", "RELAY_MAX_REQUEST_BYTES", "RELAY_ECHO",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	"HISTORY_DB_PATH", "HISTORY_RETENTION", "HISTORY_PRUNE_SCHEDULE",
	"AUTH_JWT_SECRET", "AUTH_ISSUER_URL", "AUTH_AUDIENCE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.RelayAddr)
	assert.Equal(t, 30*time.Second, cfg.RelayReadTimeout)
	assert.Equal(t, 1<<20, cfg.RelayMaxRequestBytes)
	assert.False(t, cfg.RelayEcho)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.InDelta(t, 100.0, cfg.RateLimitRPS, 0)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, 168*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, "@hourly", cfg.HistoryPruneSchedule)
	assert.False(t, cfg.Auth.Enabled())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_ADDR", "0.0.0.0:9000")
	t.Setenv("HTTP_ADDR", ":8081")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("RELAY_READ_TIMEOUT", "5s")
	t.Setenv("RELAY_MAX_REQUEST_BYTES", "4096")
	t.Setenv("RELAY_ECHO", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("HISTORY_DB_PATH", "/tmp/history.sqlite")
	t.Setenv("HISTORY_RETENTION", "24h")
	t.Setenv("HISTORY_PRUNE_SCHEDULE", "*/5 * * * *")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_AUDIENCE", "qfront")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.RelayAddr)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.RelayReadTimeout)
	assert.Equal(t, 4096, cfg.RelayMaxRequestBytes)
	assert.True(t, cfg.RelayEcho)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, 24*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, "*/5 * * * *", cfg.HistoryPruneSchedule)
	assert.True(t, cfg.Auth.Enabled())
	assert.False(t, cfg.Auth.OIDCEnabled())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_WarnsWhenHTTPUnauthenticated(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":8081")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "authentication is not configured")
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"RELAY_READ_TIMEOUT", "soon", "RELAY_READ_TIMEOUT"},
		{"HISTORY_RETENTION", "7d", "HISTORY_RETENTION"},
		{"RELAY_MAX_REQUEST_BYTES", "1MiB", "RELAY_MAX_REQUEST_BYTES"},
		{"RATE_LIMIT_BURST", "many", "RATE_LIMIT_BURST"},
		{"RATE_LIMIT_RPS", "fast", "RATE_LIMIT_RPS"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"RELAY_MAX_REQUEST_BYTES", "0", "RELAY_MAX_REQUEST_BYTES"},
		{"RELAY_READ_TIMEOUT", "-1s", "RELAY_READ_TIMEOUT"},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty relay addr", func(c *Config) { c.RelayAddr = "" }, "RELAY_ADDR"},
		{"zero burst", func(c *Config) { c.RateLimitBurst = 0 }, "RATE_LIMIT"},
		{"bad schedule", func(c *Config) {
			c.HistoryDBPath = "h.sqlite"
			c.HistoryPruneSchedule = "every now and then"
		}, "HISTORY_PRUNE_SCHEDULE"},
		{"schedule ignored without history", func(c *Config) { c.HistoryPruneSchedule = "nope" }, ""},
		{"zero retention", func(c *Config) {
			c.HistoryDBPath = "h.sqlite"
			c.HistoryRetention = 0
		}, "HISTORY_RETENTION"},
		{"oidc without audience", func(c *Config) { c.Auth.IssuerURL = "https://issuer" }, "AUTH_AUDIENCE"},
		{"both auth modes", func(c *Config) {
			c.Auth.IssuerURL = "https://issuer"
			c.Auth.Audience = "a"
			c.Auth.JWTSecret = "s"
		}, "only one"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	} {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestNewLogger_Text(t *testing.T) {
	cfg := &Config{LogFormat: "text"}
	var buf bytes.Buffer
	cfg.NewLogger(&buf).Info("hello", "n", 1)
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "n=1")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "qfront.yaml", `
relay:
  addr: 127.0.0.1:7000
  read_timeout: 10s
  echo: true
http:
  addr: ":9090"
  cors_allowed_origins: ["https://app.example.com"]
log:
  level: warn
history:
  db_path: /var/lib/qfront/history.sqlite
  retention: 48h
auth:
  jwt_secret: from-file
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.RelayAddr)
	assert.Equal(t, 10*time.Second, cfg.RelayReadTimeout)
	assert.True(t, cfg.RelayEcho)
	assert.Equal(t, 1<<20, cfg.RelayMaxRequestBytes, "absent keys keep defaults")
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/var/lib/qfront/history.sqlite", cfg.HistoryDBPath)
	assert.Equal(t, 48*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadFile(writeFile(t, "unknown.yaml", "relay:\n  port: 1\n"))
	require.Error(t, err)

	_, err = LoadFile(writeFile(t, "badduration.yaml", "history:\n  retention: forever\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.retention")
}

func TestLoadFile_Empty(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeFile(t, "qfront.yaml", "relay:\n  addr: 127.0.0.1:7000\nlog:\n  level: warn\n"))
	t.Setenv("RELAY_ADDR", "127.0.0.1:7001")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7001", cfg.RelayAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_ExplicitPathIgnoresConfigFileEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load(writeFile(t, "explicit.yaml", "relay:\n  addr: 127.0.0.1:7002\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7002", cfg.RelayAddr)
}

func TestLoad_TOMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load(writeFile(t, "qfront.toml", "[relay]\naddr = \"127.0.0.1:7003\"\n\n[http]\naddr = \":8081\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7003", cfg.RelayAddr)
	assert.Equal(t, ":9090", cfg.HTTPAddr, "env overrides the file")
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "qfront.toml", `
[relay]
addr = "127.0.0.1:7100"
read_timeout = "5s"

[rate_limit]
rps = 2.5
burst = 5

[history]
db_path = "history.sqlite"
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7100", cfg.RelayAddr)
	assert.Equal(t, 5*time.Second, cfg.RelayReadTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, "history.sqlite", cfg.HistoryDBPath)
	assert.Equal(t, "text", cfg.LogFormat, "absent tables keep defaults")
}

func TestLoadFile_TOMLUnknownKey(t *testing.T) {
	_, err := LoadFile(writeFile(t, "bad.toml", "[relay]\nport = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.port")
}
