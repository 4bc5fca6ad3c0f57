package config

import (
	"encoding/json"
	"os"

	"github.com/hefi-app/hefi/internal/flagx"
	"github.com/hefi-app/hefi/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Durations use
// timex.Duration so both "8760h" and integer nanoseconds are accepted.
// Absent keys leave the corresponding Config field untouched.
type JsonConfig struct {
	HTTPAddr             string          `json:"http_addr"`
	DatabaseDSN          string          `json:"database_dsn"`
	JWTKey               string          `json:"jwt_key"`
	JWTIssuer            string          `json:"jwt_issuer"`
	JWTAudience          string          `json:"jwt_audience"`
	JWTExpiresHours      *int            `json:"jwt_expires_hours"`
	RefreshTokenLifetime *timex.Duration `json:"refresh_token_lifetime"`
	BcryptCost           *int            `json:"bcrypt_cost"`
	RedisAddr            string          `json:"redis_addr"`
	RateLimitPerMinute   *int            `json:"rate_limit_per_minute"`
	CORSAllowedOrigins   []string        `json:"cors_allowed_origins"`
	AdminInitKey         string          `json:"admin_init_key"`
	MigrateOnStart       *bool           `json:"migrate_on_start"`
	ShutdownTimeout      *timex.Duration `json:"shutdown_timeout"`
	LogLevel             string          `json:"log_level"`
}

// parseJson loads the file named by -c/-config (if any) into config.
// Read or decode errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.JWTKey, c.JWTKey)
	overlay(&config.JWTIssuer, c.JWTIssuer)
	overlay(&config.JWTAudience, c.JWTAudience)
	overlay(&config.RedisAddr, c.RedisAddr)
	overlay(&config.AdminInitKey, c.AdminInitKey)
	overlay(&config.LogLevel, c.LogLevel)

	if c.JWTExpiresHours != nil {
		config.JWTExpiresHours = *c.JWTExpiresHours
	}
	if c.RefreshTokenLifetime != nil {
		config.RefreshTokenLifetime = c.RefreshTokenLifetime.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.RateLimitPerMinute != nil {
		config.RateLimitPerMinute = *c.RateLimitPerMinute
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	if c.MigrateOnStart != nil {
		config.MigrateOnStart = *c.MigrateOnStart
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}
