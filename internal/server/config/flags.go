package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/hefi-app/hefi/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN, or memory://
//	-k string   JWT signing key
//	-t int      access token lifetime, hours
//	-r int      refresh token lifetime, hours
//	-b int      bcrypt cost
//	-R string   redis address for rate limiting
//	-l int      requests per minute per client on /auth
//	-o string   comma separated CORS origins
//	-x string   admin init key
//	-v string   log level
//
// Only these flags are parsed (see flagx.FilterArgs); a parse error panics.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-t", "-r", "-b", "-R", "-l", "-o", "-x", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTKey, "k", config.JWTKey, "jwt signing key")
	fs.IntVar(&config.JWTExpiresHours, "t", config.JWTExpiresHours, "access token lifetime (in hours)")
	refreshHours := fs.Int("r", int(config.RefreshTokenLifetime.Hours()), "refresh token lifetime (in hours)")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.IntVar(&config.RateLimitPerMinute, "l", config.RateLimitPerMinute, "auth requests per minute per client")
	origins := fs.String("o", strings.Join(config.CORSAllowedOrigins, ","), "CORS allowed origins")
	fs.StringVar(&config.AdminInitKey, "x", config.AdminInitKey, "admin init key")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only touch derived fields when the flag was given, so a sub-hour
	// lifetime from env or JSON survives
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "r":
			config.RefreshTokenLifetime = time.Duration(*refreshHours) * time.Hour
		case "o":
			config.CORSAllowedOrigins = splitList(*origins)
		}
	})
}
