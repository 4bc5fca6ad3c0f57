package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hefi-app/hefi/internal/client/models"
	"github.com/hefi-app/hefi/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store loads nil")

	require.NoError(t, s.Save(ctx, &models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}, got)

	require.NoError(t, s.Save(ctx, &models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, s.Clear(ctx), "clearing twice is fine")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := &models.TokenPair{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, s.Save(ctx, p))
	p.AccessToken = "mutated"

	got, _ := s.Load(ctx)
	got.RefreshToken = "mutated"
	again, _ := s.Load(ctx)
	assert.Equal(t, &models.TokenPair{AccessToken: "a", RefreshToken: "r"}, again)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "hefi.db"), []byte("pass"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStore_SealedAtRestAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hefi.db")

	s, err := OpenSQLite(ctx, path, []byte("pass"))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, &models.TokenPair{AccessToken: "access-xyz", RefreshToken: "refresh-xyz"}))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT value FROM secrets WHERE key = ?`, Key).Scan(&raw))
	assert.NotContains(t, string(raw), "refresh-xyz")
	require.NoError(t, db.Close())

	s, err = OpenSQLite(ctx, path, []byte("pass"))
	require.NoError(t, err)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-xyz", got.RefreshToken)
	require.NoError(t, s.Close())

	wrong, err := OpenSQLite(ctx, path, []byte("wrong"))
	require.NoError(t, err)
	defer wrong.Close()
	_, err = wrong.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cryptox.ErrDecrypt))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
}
