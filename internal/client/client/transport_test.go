package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hefi-app/hefi/internal/client/models"
	"github.com/hefi-app/hefi/internal/client/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI accepts one current access token and rotates on /auth/refresh.
type fakeAPI struct {
	mu           sync.Mutex
	access       string
	refresh      string
	refreshCalls atomic.Int32
	hits         atomic.Int32
	refreshDelay time.Duration
	failRefresh  bool
	bodies       []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		time.Sleep(f.refreshDelay)
		var req refreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failRefresh || req.RefreshToken != f.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
			return
		}
		f.access = "access-" + req.RefreshToken
		f.refresh = "next-" + req.RefreshToken
		_ = json.NewEncoder(w).Encode(models.TokenPair{AccessToken: f.access, RefreshToken: f.refresh})
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+f.access
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, string(b))
		f.mu.Unlock()
		_, _ = w.Write(b)
	})
	return mux
}

func newTransportFixture(t *testing.T, api *fakeAPI, stored *models.TokenPair) (*http.Client, tokenstore.Store, string) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemoryStore()
	if stored != nil {
		require.NoError(t, store.Save(context.Background(), stored))
	}
	c := NewHTTPClient(srv.URL, 5*time.Second, store)
	return &http.Client{Transport: c.authed.Transport}, store, srv.URL
}

func post(t *testing.T, hc *http.Client, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer caller-supplied")
	resp, err := hc.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuthTransport_PassesThroughWithValidToken(t *testing.T) {
	api := &fakeAPI{access: "a0", refresh: "r0"}
	hc, _, srvURL := newTransportFixture(t, api, &models.TokenPair{AccessToken: "a0", RefreshToken: "r0"})

	resp := post(t, hc, srvURL+"/echo", "hello")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(0), api.refreshCalls.Load())
	assert.Equal(t, int32(1), api.hits.Load())
}

func TestAuthTransport_RefreshesAndRetriesWithBody(t *testing.T) {
	api := &fakeAPI{access: "fresh-elsewhere", refresh: "r0"}
	hc, store, srvURL := newTransportFixture(t, api, &models.TokenPair{AccessToken: "stale", RefreshToken: "r0"})

	resp := post(t, hc, srvURL+"/echo", `{"x":1}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"x":1}`, string(b), "body is replayed on retry")
	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.Equal(t, int32(2), api.hits.Load())

	pair, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.TokenPair{AccessToken: "access-r0", RefreshToken: "next-r0"}, pair)
}

func TestAuthTransport_RefreshFailureReturns401WithoutRetry(t *testing.T) {
	api := &fakeAPI{access: "other", refresh: "r0", failRefresh: true}
	hc, store, srvURL := newTransportFixture(t, api, &models.TokenPair{AccessToken: "stale", RefreshToken: "r0"})

	resp := post(t, hc, srvURL+"/echo", "x")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.Equal(t, int32(1), api.hits.Load(), "no retry after a failed refresh")

	pair, _ := store.Load(context.Background())
	assert.Equal(t, "stale", pair.AccessToken, "stored pair untouched")
}

func TestAuthTransport_NoStoredSession(t *testing.T) {
	api := &fakeAPI{access: "a", refresh: "r"}
	hc, _, srvURL := newTransportFixture(t, api, nil)

	resp := post(t, hc, srvURL+"/echo", "x")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(0), api.refreshCalls.Load())
}

func TestAuthTransport_ConcurrentUnauthorizedRefreshOnce(t *testing.T) {
	api := &fakeAPI{access: "server-side", refresh: "r0", refreshDelay: 100 * time.Millisecond}
	hc, _, srvURL := newTransportFixture(t, api, &models.TokenPair{AccessToken: "stale", RefreshToken: "r0"})

	const n = 3
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := post(t, hc, srvURL+"/echo", "req")
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), api.refreshCalls.Load(), "exactly one refresh for concurrent 401s")
	for i, c := range codes {
		assert.Equal(t, http.StatusOK, c, "request %d", i)
	}
}

func TestAuthTransport_ConcurrentRefreshFailureSharedOnce(t *testing.T) {
	api := &fakeAPI{access: "server-side", refresh: "r0", failRefresh: true, refreshDelay: 100 * time.Millisecond}
	hc, store, srvURL := newTransportFixture(t, api, &models.TokenPair{AccessToken: "stale", RefreshToken: "r0"})

	const n = 3
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := post(t, hc, srvURL+"/echo", "req")
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), api.refreshCalls.Load(), "one rejected refresh is shared by every waiter")
	assert.Equal(t, int32(n), api.hits.Load(), "no retries after the failed refresh")
	for i, c := range codes {
		assert.Equal(t, http.StatusUnauthorized, c, "request %d", i)
	}

	pair, _ := store.Load(context.Background())
	assert.Equal(t, "r0", pair.RefreshToken, "stored pair untouched")
}

func TestAuthTransport_LaterRequestRefreshesAgainAfterFailure(t *testing.T) {
	api := &fakeAPI{access: "server-side", refresh: "r0", failRefresh: true}
	hc, _, srvURL := newTransportFixture(t, api, &models.TokenPair{AccessToken: "stale", RefreshToken: "r0"})

	resp := post(t, hc, srvURL+"/echo", "first")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	api.mu.Lock()
	api.failRefresh = false
	api.mu.Unlock()

	resp = post(t, hc, srvURL+"/echo", "second")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), api.refreshCalls.Load())
}

func TestHTTPClient_RefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		api := &fakeAPI{access: "a", refresh: "r0"}
		srv := httptest.NewServer(api.handler())
		t.Cleanup(srv.Close)

		c := NewHTTPClient(srv.URL, 5*time.Second, tokenstore.NewMemoryStore())
		require.ErrorIs(t, c.RefreshSession(ctx), ErrNoSession)
		assert.Equal(t, int32(0), api.refreshCalls.Load())
	})

	t.Run("rotates stored pair", func(t *testing.T) {
		api := &fakeAPI{access: "a", refresh: "r0"}
		srv := httptest.NewServer(api.handler())
		t.Cleanup(srv.Close)

		store := tokenstore.NewMemoryStore()
		require.NoError(t, store.Save(ctx, &models.TokenPair{AccessToken: "a", RefreshToken: "r0"}))
		c := NewHTTPClient(srv.URL, 5*time.Second, store)

		require.NoError(t, c.RefreshSession(ctx))
		pair, _ := store.Load(ctx)
		assert.Equal(t, &models.TokenPair{AccessToken: "access-r0", RefreshToken: "next-r0"}, pair)
	})

	t.Run("rejected", func(t *testing.T) {
		api := &fakeAPI{access: "a", refresh: "r0", failRefresh: true}
		srv := httptest.NewServer(api.handler())
		t.Cleanup(srv.Close)

		store := tokenstore.NewMemoryStore()
		require.NoError(t, store.Save(ctx, &models.TokenPair{AccessToken: "a", RefreshToken: "r0"}))
		c := NewHTTPClient(srv.URL, 5*time.Second, store)

		require.ErrorIs(t, c.RefreshSession(ctx), ErrUnauthorized)
		pair, _ := store.Load(ctx)
		assert.Equal(t, "r0", pair.RefreshToken)
	})
}

func TestWithToken_ReplacesAuthorization(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.test/x", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer old")
	req.Header.Set("X-Other", "kept")

	r := withToken(req, nil, "new")
	assert.Equal(t, "Bearer new", r.Header.Get("Authorization"))
	assert.Equal(t, "kept", r.Header.Get("X-Other"))
	assert.Equal(t, "Bearer old", req.Header.Get("Authorization"), "original untouched")

	r = withToken(req, nil, "")
	assert.Empty(t, r.Header.Get("Authorization"))
}
