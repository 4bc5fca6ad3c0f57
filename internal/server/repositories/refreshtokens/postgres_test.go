package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ       = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token_hash,\s*expires_at,\s*user_agent,\s*ip_address\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,\s*created_at\s*$`
	findLiveQ     = `(?s)^SELECT\s+id,.*FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL\s+AND\s+expires_at\s*>\s*now\(\)\s+LIMIT\s+1\s*$`
	findByHashQ   = `(?s)^SELECT\s+id,.*FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s*$`
	markReplacedQ = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+revoked_at\s*=\s*now\(\),\s*replaced_by_token_hash\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL\s+AND\s+expires_at\s*>\s*now\(\)\s*$`
	revokeQ       = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+revoked_at\s*=\s*now\(\)\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+revoked_at\s+IS\s+NULL\s*$`
)

var tokenCols = []string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at", "replaced_by_token_hash", "user_agent", "ip_address"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	created := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs(int64(7), "hash1", expires, "curl/8", "10.0.0.1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	tok := &models.RefreshToken{UserID: 7, TokenHash: "hash1", ExpiresAt: expires, UserAgent: "curl/8", IPAddress: "10.0.0.1"}
	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.ID != 11 || !tok.CreatedAt.Equal(created) {
		t.Fatalf("id/created_at not filled: %+v", tok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_EmptyMetadataStoredAsNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs(int64(7), "hash1", sqlmock.AnyArg(), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	if err := repo.Create(context.Background(), &models.RefreshToken{UserID: 7, TokenHash: "hash1", ExpiresAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.RefreshToken{UserID: 1, TokenHash: "dup"})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	err = repo.Create(context.Background(), &models.RefreshToken{UserID: 1, TokenHash: "x"})
	if err == nil || !regexp.MustCompile(`error performing sql request: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindLive_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(10 * time.Minute)
	rows := sqlmock.NewRows(tokenCols).
		AddRow(int64(3), int64(7), "hash1", expires, time.Now(), nil, nil, nil, "10.0.0.1")
	mock.ExpectQuery(findLiveQ).WithArgs("hash1").WillReturnRows(rows)

	got, err := repo.FindLive(context.Background(), "hash1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 3 || got.UserID != 7 || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.RevokedAt != nil || got.ReplacedByTokenHash != nil || got.UserAgent != "" || got.IPAddress != "10.0.0.1" {
		t.Fatalf("nullable columns decoded wrong: %+v", got)
	}
}

func TestFindLive_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findLiveQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLive(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByHash_RotatedRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	revoked := time.Now()
	rows := sqlmock.NewRows(tokenCols).
		AddRow(int64(3), int64(7), "old", time.Now().Add(time.Hour), time.Now(), revoked, "new", "ua", "ip")
	mock.ExpectQuery(findByHashQ).WithArgs("old").WillReturnRows(rows)

	got, err := repo.FindByHash(context.Background(), "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(revoked) {
		t.Fatalf("revoked_at not decoded: %+v", got)
	}
	if got.ReplacedByTokenHash == nil || *got.ReplacedByTokenHash != "new" {
		t.Fatalf("replaced_by_token_hash not decoded: %+v", got)
	}
}

func TestFindLive_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findLiveQ).WithArgs("h").WillReturnError(errors.New("db err"))

	_, err := repo.FindLive(context.Background(), "h")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMarkReplaced_RowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(markReplacedQ).WithArgs(int64(3), "new").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(markReplacedQ).WithArgs(int64(3), "new2").WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkReplaced(context.Background(), 3, "new")
	if err != nil || n != 1 {
		t.Fatalf("first MarkReplaced: got (%d, %v)", n, err)
	}
	n, err = repo.MarkReplaced(context.Background(), 3, "new2")
	if err != nil || n != 0 {
		t.Fatalf("second MarkReplaced: got (%d, %v)", n, err)
	}
}

func TestRevokeByHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokeQ).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(revokeQ).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(revokeQ).WithArgs("h").WillReturnError(errors.New("db err"))

	if n, err := repo.RevokeByHash(context.Background(), "h"); err != nil || n != 1 {
		t.Fatalf("first revoke: got (%d, %v)", n, err)
	}
	if n, err := repo.RevokeByHash(context.Background(), "h"); err != nil || n != 0 {
		t.Fatalf("second revoke must be a no-op: got (%d, %v)", n, err)
	}
	if _, err := repo.RevokeByHash(context.Background(), "h"); err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
