package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hefi-app/hefi/internal/client/migrations"
	"github.com/hefi-app/hefi/internal/client/models"
	"github.com/hefi-app/hefi/internal/cryptox"
	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const saltKey = "kdf_salt"

// SQLiteStore keeps the pair in a local SQLite file, sealed with a key
// derived from a passphrase. The salt lives in the metadata table.
type SQLiteStore struct {
	db  *sql.DB
	key []byte
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens (creating if needed) the store at dsn and unlocks it
// with passphrase. A wrong passphrase is only noticed by Load.
func OpenSQLite(ctx context.Context, dsn string, passphrase []byte) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	salt, err := getMeta(ctx, db, saltKey)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if salt == nil {
		salt = cryptox.NewSalt()
		if err := setMeta(ctx, db, saltKey, salt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &SQLiteStore{db: db, key: cryptox.DeriveKey(passphrase, salt)}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.TokenPair, error) {
	var nonce, value []byte
	err := s.db.QueryRowContext(ctx, `SELECT nonce, value FROM secrets WHERE key = ?`, Key).Scan(&nonce, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	var pair models.TokenPair
	if err := cryptox.Open(value, nonce, s.key, &pair); err != nil {
		return nil, fmt.Errorf("failed to open tokens: %w", err)
	}
	return &pair, nil
}

func (s *SQLiteStore) Save(ctx context.Context, pair *models.TokenPair) error {
	value, nonce, err := cryptox.Seal(pair, s.key)
	if err != nil {
		return fmt.Errorf("failed to seal tokens: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO secrets (key, nonce, value) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET nonce = excluded.nonce, value = excluded.value
	`, Key, nonce, value)
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, Key); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func getMeta(ctx context.Context, db dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}
