package repomanager

import (
	"context"
	"sync"

	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/hefi-app/hefi/internal/server/repositories/refreshtokens"
	"github.com/hefi-app/hefi/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves process-local repositories. A DBTX handed
// to Users/RefreshTokens only matters when it is the handle of InTx, which
// makes their writes roll back with the unit of work. Used for development
// (database_dsn memory://) and tests.
type InMemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	txMu          sync.Mutex
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Transactor() dbx.Transactor {
	return memoryTransactor{mu: &m.txMu}
}

func (m *InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return m.users.Bind(db)
}

func (m *InMemoryRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens.Bind(db)
}

// memoryTransactor runs one unit of work at a time. Writes made through the
// handle it passes to fn are undone, newest first, if fn fails or panics.
type memoryTransactor struct {
	mu *sync.Mutex
}

func (memoryTransactor) Conn() dbx.DBTX { return nil }

func (t memoryTransactor) InTx(ctx context.Context, fn dbx.TxFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := &memoryTx{}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memoryTx is the handle passed to in-memory units of work. It has no SQL
// connection behind it; the memory repositories only record undo steps.
type memoryTx struct {
	dbx.DBTX
	undo []func()
}

func (tx *memoryTx) OnRollback(undo func()) {
	tx.undo = append(tx.undo, undo)
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}
