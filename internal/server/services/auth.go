package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/logging"
	"github.com/hefi-app/hefi/internal/server/auth"
	"github.com/hefi-app/hefi/internal/server/models"
	"github.com/hefi-app/hefi/internal/server/repositories/repomanager"
)

// ErrSessionNotStarted means the user was created but no refresh token could
// be issued for it.
var ErrSessionNotStarted = fmt.Errorf("%w: user created but session not started", common.ErrorInternal)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID string
	Email  string
}

// AuthService provides authentication-related operations:
// - Register: create users and start a session
// - Login: verify credentials and start a session
// - Refresh: rotate a refresh token and mint a new access token
// - Logout: revoke a refresh token
type AuthService struct {
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	signer      *auth.Signer
	tokens      *RefreshTokenManager
	logger      logging.Logger
}

func NewAuthService(m repomanager.RepositoryManager, hasher auth.Hasher, signer *auth.Signer, tokens *RefreshTokenManager, logger logging.Logger) *AuthService {
	return &AuthService{
		repomanager: m,
		hasher:      hasher,
		signer:      signer,
		tokens:      tokens,
		logger:      logger.With("module", "auth_service"),
	}
}

// Register validates in, stores the user with a hashed password and issues
// a token pair. A taken email yields common.ErrorConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta models.RequestMetadata) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorValidation)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.repomanager.Transactor().Conn())
	user, err := repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	access, err := s.signer.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error(ctx, "access token after register", "user_id", user.ID, "error", err)
		return nil, ErrSessionNotStarted
	}
	refresh, err := s.tokens.Issue(ctx, user.ID, meta)
	if err != nil {
		s.logger.Error(ctx, "refresh token after register", "user_id", user.ID, "error", err)
		return nil, ErrSessionNotStarted
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Login checks the credentials and issues a token pair. Unknown email and
// wrong password are both common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta models.RequestMetadata) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.repomanager.Transactor().Conn())
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	access, err := s.signer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token
// is revoked in the same transaction that stores its successor, so it can be
// used at most once.
func (s *AuthService) Refresh(ctx context.Context, raw string, meta models.RequestMetadata) (*TokenPair, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: refresh token required", common.ErrorValidation)
	}

	old, err := s.tokens.FindLive(ctx, raw)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	user, err := s.repomanager.Users(s.repomanager.Transactor().Conn()).GetByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh token without user", "token_id", old.ID, "user_id", old.UserID)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	access, err := s.signer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	nextRaw, nextHash, err := auth.MintRefreshToken()
	if err != nil {
		return nil, err
	}

	if _, err := s.tokens.Rotate(ctx, old.ID, nextHash, s.tokens.NewExpiry(), user.ID, meta); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: nextRaw}, nil
}

// Logout revokes raw. It reports whether a live token was revoked; storage
// failures are logged and reported as false.
func (s *AuthService) Logout(ctx context.Context, raw string) bool {
	revoked, err := s.tokens.Revoke(ctx, raw)
	if err != nil {
		s.logger.Error(ctx, "revoke refresh token", "error", err)
		return false
	}
	return revoked
}

// Validate reflects verified claims back. It does not touch storage.
func (s *AuthService) Validate(claims *auth.Claims) Identity {
	return Identity{UserID: claims.Subject, Email: claims.Email}
}

// VerifyAccessToken checks a bearer token with the service's signer.
func (s *AuthService) VerifyAccessToken(token string) (*auth.Claims, error) {
	return s.signer.Verify(token)
}

// Profile returns the stored user, or common.ErrorNotFound.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return s.repomanager.Users(s.repomanager.Transactor().Conn()).GetByID(ctx, userID)
}
