package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hefi-app/hefi/internal/client/models"
	"github.com/hefi-app/hefi/internal/client/tokenstore"
	"github.com/hefi-app/hefi/internal/common"
)

// Client is the Hefi auth API as seen by the CLI.
type Client interface {
	Register(ctx context.Context, name, email, password string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	RefreshSession(ctx context.Context) error
	Logout(ctx context.Context, refreshToken string) (bool, error)
	Validate(ctx context.Context) (*models.Identity, error)
	Profile(ctx context.Context) (*models.Profile, error)
	Ping(ctx context.Context) error
}

// HTTPClient talks JSON to the server. Calls on protected routes go
// through an AuthTransport; Refresh and the public routes do not.
type HTTPClient struct {
	baseURL string
	authed  *http.Client
	plain   *http.Client
	auth    *AuthTransport
}

// NewHTTPClient builds a client for baseURL whose protected calls take the
// access token from store and refresh it when the server answers 401.
func NewHTTPClient(baseURL string, timeout time.Duration, store tokenstore.Store) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		plain:   &http.Client{Timeout: timeout},
	}
	c.auth = NewAuthTransport(http.DefaultTransport, store, c)
	c.authed = &http.Client{
		Timeout:   timeout,
		Transport: c.auth,
	}
	return c
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (r *sessionResponse) session() *models.Session {
	return &models.Session{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		TokenPair: models.TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken},
	}
}

type logoutResponse struct {
	Revoked bool `json:"revoked"`
}

type validateResponse struct {
	Status string `json:"status"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type profileResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/register", registerRequest{Name: name, Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.session(), nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.session(), nil
}

// Refresh never goes through the AuthTransport.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var resp models.TokenPair
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshSession rotates the stored pair through the AuthTransport, so it
// never races a refresh triggered by a 401.
func (c *HTTPClient) RefreshSession(ctx context.Context) error {
	return c.auth.Refresh(ctx)
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) (bool, error) {
	var resp logoutResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/logout", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return false, err
	}
	return resp.Revoked, nil
}

func (c *HTTPClient) Validate(ctx context.Context) (*models.Identity, error) {
	var resp validateResponse
	if err := c.do(ctx, c.authed, http.MethodGet, "/auth/validate", nil, &resp); err != nil {
		return nil, err
	}
	return &models.Identity{UserID: resp.UserID, Email: resp.Email}, nil
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.Profile, error) {
	var resp profileResponse
	if err := c.do(ctx, c.authed, http.MethodGet, "/users/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &models.Profile{ID: resp.ID, Name: resp.Name, Email: resp.Email}, nil
}

// Ping checks /health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, c.plain, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return mapStatus(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response: %v", ErrUnavailable, err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)

	apiErr := &APIError{Status: resp.StatusCode, Message: e.Error}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr.Kind = ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Kind = ErrUnauthorized
	case http.StatusNotFound:
		apiErr.Kind = ErrNotFound
	case http.StatusConflict:
		apiErr.Kind = ErrConflict
	default:
		apiErr.Kind = ErrUnavailable
	}
	return apiErr
}

// bearer formats an Authorization header value.
func bearer(token string) string {
	return common.BearerScheme + " " + token
}
