// Package cli provides the interactive Hefi command-line client.
//
// It wires configuration, the token store, the API client and a small REPL.
// Typical flow: restore a stored session if there is one, then execute user
// commands until "exit".
//
// Key features:
//   - Register / Login / Logout
//   - whoami and profile, refreshed transparently when the access token expires
//   - Manual refresh and server ping
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
