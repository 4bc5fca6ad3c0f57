// Package repomanager vends repository implementations bound to a database
// handle and owns schema migrations. Services ask the manager for a
// repository per call so the same code runs against *sql.DB or *sql.Tx.
package repomanager

import (
	"context"

	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/hefi-app/hefi/internal/server/repositories/refreshtokens"
	"github.com/hefi-app/hefi/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Transactor() dbx.Transactor
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
