// Package client contains the HTTP client of the Hefi auth API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for
//     Register, Login, Refresh, Logout, Validate, Profile and Ping.
//  2. A JSON/HTTP implementation (see HTTPClient) that maps statuses to
//     sentinel errors.
//  3. AuthTransport, an http.RoundTripper that attaches the stored access
//     token and, on 401, refreshes the token pair once for all concurrent
//     callers before retrying the request a single time.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors matched with errors.Is:
// ErrUnavailable (network or decoding failure), ErrUnauthorized,
// ErrConflict, ErrValidation, ErrNotFound and ErrNoSession.
package client
