// Package models defines the client-side view of the Hefi auth API.
package models

// TokenPair is what the client keeps between runs.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is returned by register and login.
type Session struct {
	ID    int64
	Name  string
	Email string
	TokenPair
}

// Identity is the server's reading of the current access token.
type Identity struct {
	UserID string
	Email  string
}

type Profile struct {
	ID    int64
	Name  string
	Email string
}
