package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/hefi-app/hefi/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by_token_hash, user_agent, ip_address
		FROM refresh_tokens`

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		token.UserID, token.TokenHash, token.ExpiresAt, nullString(token.UserAgent), nullString(token.IPAddress),
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindLive(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := selectColumns + `
		WHERE token_hash = $1
		  AND revoked_at IS NULL
		  AND expires_at > now()
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *PostgresRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := selectColumns + `
		WHERE token_hash = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *PostgresRepository) MarkReplaced(ctx context.Context, id int64, newTokenHash string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		   SET revoked_at = now(),
		       replaced_by_token_hash = $2
		 WHERE id = $1
		   AND revoked_at IS NULL
		   AND expires_at > now()
	`
	return r.exec(ctx, query, id, newTokenHash)
}

func (r *PostgresRepository) RevokeByHash(ctx context.Context, tokenHash string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		   SET revoked_at = now()
		 WHERE token_hash = $1
		   AND revoked_at IS NULL
	`
	return r.exec(ctx, query, tokenHash)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.RefreshToken, error) {
	var (
		t          models.RefreshToken
		revokedAt  sql.NullTime
		replacedBy sql.NullString
		userAgent  sql.NullString
		ipAddress  sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
		&revokedAt, &replacedBy, &userAgent, &ipAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	if replacedBy.Valid {
		t.ReplacedByTokenHash = &replacedBy.String
	}
	t.UserAgent = userAgent.String
	t.IPAddress = ipAddress.String
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
