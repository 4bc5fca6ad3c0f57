package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hefi-app/hefi/internal/client/models"
	"github.com/hefi-app/hefi/internal/client/tokenstore"
	"github.com/hefi-app/hefi/internal/common"
)

// Refresher exchanges a refresh token for a new pair. Implementations must
// not send the call through the AuthTransport that uses them.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// AuthTransport attaches the stored access token to each request. When the
// server answers 401 it refreshes the pair once, under a lock shared by all
// requests, and retries the request once with the new token. Requests that
// were in flight while a refresh failed get that failure without another
// refresh call.
type AuthTransport struct {
	Base      http.RoundTripper
	Store     tokenstore.Store
	Refresher Refresher

	mu sync.Mutex
	// attempts counts finished refresh calls and is written under mu.
	// failed holds the refresh token the latest call was rejected for,
	// "" after a success. Guarded by mu.
	attempts atomic.Uint64
	failed   string
}

func NewAuthTransport(base http.RoundTripper, store tokenstore.Store, r Refresher) *AuthTransport {
	return &AuthTransport{Base: base, Store: store, Refresher: r}
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	seen := t.attempts.Load()

	sent := ""
	if pair, err := t.Store.Load(ctx); err != nil {
		return nil, err
	} else if pair != nil {
		sent = pair.AccessToken
	}

	resp, err := t.base().RoundTrip(withToken(req, body, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.Store.Load(ctx)
	if err != nil || current == nil || current.RefreshToken == "" {
		// nothing to refresh with
		return resp, nil
	}

	if current.AccessToken == sent {
		if t.attempts.Load() != seen && t.failed == current.RefreshToken {
			discard(resp)
			return unauthorized(req), nil
		}
		next, err := t.refreshLocked(ctx, current)
		if errors.Is(err, errSaveTokens) {
			discard(resp)
			return nil, err
		}
		if err != nil {
			discard(resp)
			return unauthorized(req), nil
		}
		current = next
	}

	discard(resp)
	return t.base().RoundTrip(withToken(req, body, current.AccessToken))
}

// Refresh rotates the stored pair now, on the same lock as the 401 path.
// It returns ErrNoSession when there is no refresh token to use.
func (t *AuthTransport) Refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.Store.Load(ctx)
	if err != nil {
		return err
	}
	if current == nil || current.RefreshToken == "" {
		return ErrNoSession
	}
	_, err = t.refreshLocked(ctx, current)
	return err
}

var errSaveTokens = errors.New("token saving error")

// refreshLocked exchanges current.RefreshToken and stores the new pair.
// Callers hold t.mu.
func (t *AuthTransport) refreshLocked(ctx context.Context, current *models.TokenPair) (*models.TokenPair, error) {
	next, err := t.Refresher.Refresh(ctx, current.RefreshToken)
	t.attempts.Add(1)
	if err == nil && next == nil {
		err = ErrUnauthorized
	}
	if err != nil {
		t.failed = current.RefreshToken
		return nil, err
	}
	t.failed = ""

	if err := t.Store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: %v", errSaveTokens, err)
	}
	return next, nil
}

// bufferBody reads the request body once so it can be sent twice.
func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// withToken clones req with a fresh body and the given bearer token in
// place of any Authorization header the caller set.
func withToken(req *http.Request, body []byte, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Del(common.AuthorizationHeader)
	if token != "" {
		r.Header.Set(common.AuthorizationHeader, bearer(token))
	}
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	return r
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func unauthorized(req *http.Request) *http.Response {
	const msg = `{"error":"unauthorized"}`
	return &http.Response{
		Status:        "401 Unauthorized",
		StatusCode:    http.StatusUnauthorized,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(msg)),
		ContentLength: int64(len(msg)),
		Request:       req,
	}
}
