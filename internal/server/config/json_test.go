package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":              "www.example:9000",
		"database_dsn":           "postgres://db/hefi",
		"jwt_key":                "my_secret_key",
		"jwt_issuer":             "Iss",
		"jwt_audience":           "Aud",
		"jwt_expires_hours":      5,
		"refresh_token_lifetime": "720h",
		"bcrypt_cost":            4,
		"redis_addr":             "redis:6379",
		"rate_limit_per_minute":  10,
		"cors_allowed_origins":   []string{"https://app.hefi"},
		"admin_init_key":         "adm",
		"migrate_on_start":       false,
		"shutdown_timeout":       "5s",
		"log_level":              "debug",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://db/hefi", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.JWTKey)
		assert.Equal(t, "Iss", cfg.JWTIssuer)
		assert.Equal(t, "Aud", cfg.JWTAudience)
		assert.Equal(t, 5, cfg.JWTExpiresHours)
		assert.Equal(t, 720*time.Hour, cfg.RefreshTokenLifetime)
		assert.Equal(t, 4, cfg.BcryptCost)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 10, cfg.RateLimitPerMinute)
		assert.Equal(t, []string{"https://app.hefi"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, "adm", cfg.AdminInitKey)
		assert.False(t, cfg.MigrateOnStart)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"jwt_key": "only-key"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "only-key", cfg.JWTKey)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, 2, cfg.JWTExpiresHours)
		assert.True(t, cfg.MigrateOnStart)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", JWTKey: "key"}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.JWTKey)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
