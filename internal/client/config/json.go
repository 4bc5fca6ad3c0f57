package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/hefi-app/hefi/internal/flagx"
	"github.com/hefi-app/hefi/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// keep the current value.
type JsonConfig struct {
	ServerURL          string          `json:"server_url"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	StorePath          string          `json:"store_path"`
	StorePassphraseEnv string          `json:"store_passphrase_env"`
}

// parseJson overlays Config with the file named by -c/-config, if any.
// Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.StorePath != "" {
		cfg.StorePath = jc.StorePath
	}
	if jc.StorePassphraseEnv != "" {
		cfg.StorePassphraseEnv = jc.StorePassphraseEnv
	}
}
