// Package refreshtokens declares the server-side repository contract for
// refresh tokens in persistent storage. Tokens are addressed by the hex
// SHA-256 of the raw value; raw tokens never reach this layer.
package refreshtokens

import (
	"context"

	"github.com/hefi-app/hefi/internal/server/models"
)

// Repository defines operations for issuing, looking up, rotating and
// revoking refresh tokens. Rows are never deleted here.
type Repository interface {
	// Create inserts token and fills its ID and CreatedAt.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindLive returns the live (not revoked, not expired) token with the
	// given hash, or common.ErrorNotFound.
	FindLive(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// FindByHash returns the token regardless of state, or common.ErrorNotFound.
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// MarkReplaced revokes the live token id and records its successor.
	// It returns the number of rows changed: 0 means the token was no longer live.
	MarkReplaced(ctx context.Context, id int64, newTokenHash string) (int64, error)

	// RevokeByHash revokes the token if it is not revoked yet and returns the
	// number of rows changed.
	RevokeByHash(ctx context.Context, tokenHash string) (int64, error)
}
