package models

import "time"

// RefreshToken is a stored refresh token. Only the SHA-256 of the raw token
// is kept. A token is live while RevokedAt is nil and ExpiresAt is in the
// future; ReplacedByTokenHash links a rotated token to its successor.
type RefreshToken struct {
	ID                  int64
	UserID              int64
	TokenHash           string
	ExpiresAt           time.Time
	CreatedAt           time.Time
	RevokedAt           *time.Time
	ReplacedByTokenHash *string
	UserAgent           string
	IPAddress           string
}

// IsLive reports whether the token can still be exchanged at now.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// RequestMetadata is audit data about the caller stored with refresh tokens.
type RequestMetadata struct {
	UserAgent string
	IPAddress string
}
