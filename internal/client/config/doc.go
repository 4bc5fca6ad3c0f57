// Package config loads runtime configuration for the Hefi CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the Hefi API
//	-t int      request timeout (seconds)
//	-s string   path of the local token store
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "15s",
//	  "store_path": "hefi.db",
//	  "store_passphrase_env": "HEFI_STORE_PASSPHRASE"
//	}
package config
