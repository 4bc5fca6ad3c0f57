package common

const (
	// AuthorizationHeader carries the bearer access token on protected requests.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the auth scheme prefix expected in AuthorizationHeader.
	BearerScheme = "Bearer"

	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)
