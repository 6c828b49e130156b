package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"server": {"port": "9000", "environment": "staging", "read_timeout": "5s"},
		"database": {"type": "sqlite", "dsn": "file::memory:"},
		"keys": {"verify_timeout": "750ms"},
		"usage": {"batch_size": 10},
		"auth": {"jwt_secret": "0123456789abcdef0123"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "staging", cfg.Server.Environment)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 750*time.Millisecond, cfg.Keys.VerifyTimeout.Duration)
	assert.Equal(t, 10, cfg.Usage.BatchSize)
	// defaults
	assert.Equal(t, "database", cfg.RateLimit.Backend)
	assert.Equal(t, 1000, cfg.Usage.BufferSize)
	assert.Equal(t, 24, cfg.Auth.JWTExpiryHours)
	assert.Equal(t, "localhost:6379", cfg.Redis.GetRedisAddr())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "7000"
database:
  type: sqlite
  dsn: "test.db"
redis:
  enabled: true
  host: cache
  port: 6380
rate_limit:
  backend: redis
  ip_rps: 2.5
upstream:
  breaker_cooldown: 1m
auth:
  jwt_secret: yaml-secret-0123456789
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "cache:6380", cfg.Redis.GetRedisAddr())
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 2.5, cfg.RateLimit.IPRPS)
	assert.Equal(t, time.Minute, cfg.Upstream.BreakerCooldown.Duration)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.json", `{"server": {"port": "9000"}, "database": {"type": "sqlite", "dsn": "file.db"}}`)

	t.Setenv("KLYA_PORT", "9100")
	t.Setenv("KLYA_DATABASE_DSN", "env.db")
	t.Setenv("KLYA_DEBUG", "true")
	t.Setenv("JWT_SECRET", "from-env-0123456789")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "env.db", cfg.Database.DSN)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "from-env-0123456789", cfg.Auth.JWTSecret)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("KLYA_DATABASE_TYPE", "sqlite")
	t.Setenv("KLYA_DATABASE_DSN", "env.db")
	t.Setenv("JWT_SECRET", "from-env-0123456789")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.DSN)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad json", `{"server":`, "failed to parse config file"},
		{"no dsn", `{"database": {"type": "sqlite"}}`, "dsn must be configured"},
		{"bad db type", `{"database": {"type": "oracle", "dsn": "x"}}`, "unsupported database type"},
		{"redis backend without redis", `{"database": {"type": "sqlite", "dsn": "x"}, "rate_limit": {"backend": "redis"}}`, "redis is not enabled"},
		{"production without secret", `{"server": {"environment": "production"}, "database": {"type": "sqlite", "dsn": "x"}}`, "jwt_secret"},
		{"development without secret", `{"server": {"environment": "development"}, "database": {"type": "sqlite", "dsn": "x"}}`, "jwt_secret"},
		{"default environment without secret", `{"database": {"type": "sqlite", "dsn": "x"}}`, "jwt_secret"},
		{"short secret", `{"database": {"type": "sqlite", "dsn": "x"}, "auth": {"jwt_secret": "short"}}`, "at least 16 characters"},
		{"bad duration", `{"database": {"type": "sqlite", "dsn": "x"}, "keys": {"verify_timeout": "soon"}}`, "invalid duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
