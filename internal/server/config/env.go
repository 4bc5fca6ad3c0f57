package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hefi-app/hefi/internal/flagx"
	"github.com/joho/godotenv"
)

// defaultEnvFile is loaded when present and no -env flag is given.
const defaultEnvFile = ".env"

// parseEnv overlays Config with environment variables. A dotenv file
// (-env flag, else ./.env if it exists) is loaded first; variables already
// set in the process environment win over the file.
//
// Recognised variables (first non-empty alias wins):
//
//	HEFI_HTTP_ADDR
//	HEFI_DATABASE_DSN, DATABASE_URL
//	HEFI_JWT_KEY, JWT_KEY
//	HEFI_JWT_ISSUER, HEFI_JWT_AUDIENCE, HEFI_JWT_EXPIRES_HOURS
//	HEFI_REFRESH_TOKEN_TTL        Go duration, e.g. "8760h"
//	HEFI_BCRYPT_COST
//	HEFI_REDIS_ADDR, HEFI_RATE_LIMIT_RPM
//	HEFI_CORS_ORIGINS             comma separated
//	HEFI_ADMIN_INIT_KEY, ADMIN_INIT_KEY
//	HEFI_MIGRATE_ON_START         bool
//	HEFI_SHUTDOWN_TIMEOUT         Go duration
//	HEFI_LOG_LEVEL
//
// Malformed numeric, bool or duration values panic, like a broken JSON file.
func parseEnv(cfg *Config) {
	loadEnvFile(flagx.EnvFileFlags())

	setString(&cfg.HTTPAddr, "HEFI_HTTP_ADDR")
	setString(&cfg.DatabaseDSN, "HEFI_DATABASE_DSN", "DATABASE_URL")
	setString(&cfg.JWTKey, "HEFI_JWT_KEY", "JWT_KEY")
	setString(&cfg.JWTIssuer, "HEFI_JWT_ISSUER")
	setString(&cfg.JWTAudience, "HEFI_JWT_AUDIENCE")
	setInt(&cfg.JWTExpiresHours, "HEFI_JWT_EXPIRES_HOURS")
	setDuration(&cfg.RefreshTokenLifetime, "HEFI_REFRESH_TOKEN_TTL")
	setInt(&cfg.BcryptCost, "HEFI_BCRYPT_COST")
	setString(&cfg.RedisAddr, "HEFI_REDIS_ADDR")
	setInt(&cfg.RateLimitPerMinute, "HEFI_RATE_LIMIT_RPM")
	if v := lookup("HEFI_CORS_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	setString(&cfg.AdminInitKey, "HEFI_ADMIN_INIT_KEY", "ADMIN_INIT_KEY")
	setBool(&cfg.MigrateOnStart, "HEFI_MIGRATE_ON_START")
	setDuration(&cfg.ShutdownTimeout, "HEFI_SHUTDOWN_TIMEOUT")
	setString(&cfg.LogLevel, "HEFI_LOG_LEVEL")
}

func loadEnvFile(path string) {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}

func lookup(names ...string) string {
	for _, n := range names {
		if v, ok := os.LookupEnv(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func setString(dst *string, names ...string) {
	if v := lookup(names...); v != "" {
		*dst = v
	}
}

func setInt(dst *int, names ...string) {
	v := lookup(names...)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func setBool(dst *bool, names ...string) {
	v := lookup(names...)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(err)
	}
	*dst = b
}

func setDuration(dst *time.Duration, names ...string) {
	v := lookup(names...)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
