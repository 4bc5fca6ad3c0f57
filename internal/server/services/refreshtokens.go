// Package services contains server-side business logic: the refresh token
// manager and the AuthService that drives register/login/refresh/logout.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/hefi-app/hefi/internal/server/auth"
	"github.com/hefi-app/hefi/internal/server/models"
	"github.com/hefi-app/hefi/internal/server/repositories/repomanager"
)

// RefreshTokenManager issues, rotates and revokes refresh tokens. Callers
// only ever see raw tokens; the repositories only ever see hashes.
type RefreshTokenManager struct {
	repomanager repomanager.RepositoryManager
	lifetime    time.Duration
	now         func() time.Time
}

func NewRefreshTokenManager(m repomanager.RepositoryManager, lifetime time.Duration) *RefreshTokenManager {
	return &RefreshTokenManager{repomanager: m, lifetime: lifetime, now: time.Now}
}

// NewExpiry is the expiry of a token minted now.
func (m *RefreshTokenManager) NewExpiry() time.Time { return m.now().Add(m.lifetime) }

// Issue mints a token for userID, stores its hash and returns the raw value.
func (m *RefreshTokenManager) Issue(ctx context.Context, userID int64, meta models.RequestMetadata) (string, error) {
	raw, hash, err := auth.MintRefreshToken()
	if err != nil {
		return "", err
	}

	repo := m.repomanager.RefreshTokens(m.repomanager.Transactor().Conn())
	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: m.NewExpiry(),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}
	if err := repo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("error storing refresh token: %w", err)
	}
	return raw, nil
}

// FindLive returns the live token for raw. Unknown, expired and revoked
// tokens all yield common.ErrorNotFound.
func (m *RefreshTokenManager) FindLive(ctx context.Context, raw string) (*models.RefreshToken, error) {
	if raw == "" {
		return nil, common.ErrorNotFound
	}
	repo := m.repomanager.RefreshTokens(m.repomanager.Transactor().Conn())
	return repo.FindLive(ctx, auth.HashRefreshToken(raw))
}

// Rotate revokes oldID, links it to newHash and inserts the successor in a
// single transaction. It returns the number of rows revoked (always 1 on
// success). If oldID was no longer live nothing is written and
// common.ErrorUnauthorized is returned.
func (m *RefreshTokenManager) Rotate(ctx context.Context, oldID int64, newHash string, newExpiry time.Time, userID int64, meta models.RequestMetadata) (int64, error) {
	var affected int64

	err := m.repomanager.Transactor().InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.repomanager.RefreshTokens(tx)

		n, err := repo.MarkReplaced(ctx, oldID, newHash)
		if err != nil {
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		if n == 0 {
			return common.ErrorUnauthorized
		}

		next := &models.RefreshToken{
			UserID:    userID,
			TokenHash: newHash,
			ExpiresAt: newExpiry,
			UserAgent: meta.UserAgent,
			IPAddress: meta.IPAddress,
		}
		if err := repo.Create(ctx, next); err != nil {
			return fmt.Errorf("error storing refresh token: %w", err)
		}
		affected = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Revoke revokes the live token for raw and reports whether a row changed.
// Unknown and already revoked tokens are not an error.
func (m *RefreshTokenManager) Revoke(ctx context.Context, raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	repo := m.repomanager.RefreshTokens(m.repomanager.Transactor().Conn())
	n, err := repo.RevokeByHash(ctx, auth.HashRefreshToken(raw))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
