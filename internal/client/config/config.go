package config

import "time"

// Config holds runtime settings for the Hefi CLI.
//
// Fields:
//   - ServerURL: base URL of the Hefi API.
//   - RequestTimeout: limit for one API call, refresh and retry included.
//   - StorePath: SQLite file holding the sealed token pair.
//   - StorePassphraseEnv: environment variable with the store passphrase;
//     when it is unset the CLI keeps tokens in memory only.
type Config struct {
	ServerURL          string
	RequestTimeout     time.Duration
	StorePath          string
	StorePassphraseEnv string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.StorePath = "hefi.db"
	c.StorePassphraseEnv = "HEFI_STORE_PASSPHRASE"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
