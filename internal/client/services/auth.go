// Package services contains application services for the Hefi client.
// This file defines the authentication service: register, login, refresh,
// logout and identity lookups, keeping the token pair in a tokenstore.Store.
package services

import (
	"context"
	"fmt"

	"github.com/hefi-app/hefi/internal/client/client"
	"github.com/hefi-app/hefi/internal/client/models"
	"github.com/hefi-app/hefi/internal/client/tokenstore"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: authenticate against the server and persist the pair.
//   - Refresh: rotate the stored pair; ErrNoSession without a refresh token.
//   - Logout: revoke on the server when reachable, then forget the pair.
//   - WhoAmI / Profile: protected calls, refreshed transparently on 401.
//   - Ping: check server liveness.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*models.Identity, error)
	Profile(ctx context.Context) (*models.Profile, error)
	LoggedIn(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  tokenstore.Store
}

// NewAuthService constructs an AuthService bound to the given API client and store.
func NewAuthService(c client.Client, store tokenstore.Store) AuthService {
	return &authService{client: c, store: store}
}

func (a *authService) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	s, err := a.client.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(ctx, &s.TokenPair); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return s, nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(ctx, &s.TokenPair); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return s, nil
}

// Refresh exchanges the stored refresh token for a new pair. It shares the
// client's refresh lock, so it never races a refresh triggered by a 401.
func (a *authService) Refresh(ctx context.Context) error {
	return a.client.RefreshSession(ctx)
}

// Logout ignores server and network errors; the local pair is always cleared.
func (a *authService) Logout(ctx context.Context) error {
	pair, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if pair != nil && pair.RefreshToken != "" {
		_, _ = a.client.Logout(ctx, pair.RefreshToken)
	}
	return a.store.Clear(ctx)
}

func (a *authService) WhoAmI(ctx context.Context) (*models.Identity, error) {
	return a.client.Validate(ctx)
}

func (a *authService) Profile(ctx context.Context) (*models.Profile, error) {
	return a.client.Profile(ctx)
}

func (a *authService) LoggedIn(ctx context.Context) (bool, error) {
	pair, err := a.store.Load(ctx)
	if err != nil {
		return false, err
	}
	return pair != nil && pair.RefreshToken != "", nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
