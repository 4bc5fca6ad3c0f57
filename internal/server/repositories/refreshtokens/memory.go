package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/hefi-app/hefi/internal/server/models"
)

// MemoryRepository keeps refresh tokens in process memory with the same
// live/rotation semantics as the PostgreSQL repository. Every mutation holds
// the lock, so of two concurrent MarkReplaced calls on one id only one
// reports a changed row.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.RefreshToken
	byHash map[string]int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows:   make(map[int64]*models.RefreshToken),
		byHash: make(map[string]int64),
		now:    time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[token.TokenHash]; ok {
		return common.ErrorConflict
	}

	r.nextID++
	token.ID = r.nextID
	token.CreatedAt = r.now()

	stored := *token
	r.rows[stored.ID] = &stored
	r.byHash[stored.TokenHash] = stored.ID
	return nil
}

func (r *MemoryRepository) FindLive(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.lookup(tokenHash)
	if !ok || !t.IsLive(r.now()) {
		return nil, common.ErrorNotFound
	}
	return copyToken(t), nil
}

func (r *MemoryRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.lookup(tokenHash)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyToken(t), nil
}

func (r *MemoryRepository) MarkReplaced(ctx context.Context, id int64, newTokenHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.rows[id]
	now := r.now()
	if !ok || !t.IsLive(now) {
		return 0, nil
	}
	t.RevokedAt = &now
	replacedBy := newTokenHash
	t.ReplacedByTokenHash = &replacedBy
	return 1, nil
}

func (r *MemoryRepository) RevokeByHash(ctx context.Context, tokenHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.lookup(tokenHash)
	if !ok || t.RevokedAt != nil {
		return 0, nil
	}
	now := r.now()
	t.RevokedAt = &now
	return 1, nil
}

// rollbackRecorder is implemented by in-memory transaction handles. Undo
// steps run in reverse order when the transaction fails.
type rollbackRecorder interface {
	OnRollback(undo func())
}

// Bind returns r itself, or a view whose writes are undone on rollback when
// db is an in-memory transaction handle.
func (r *MemoryRepository) Bind(db dbx.DBTX) Repository {
	if tx, ok := db.(rollbackRecorder); ok {
		return &memoryTxRepository{MemoryRepository: r, tx: tx}
	}
	return r
}

type memoryTxRepository struct {
	*MemoryRepository
	tx rollbackRecorder
}

func (t *memoryTxRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if err := t.MemoryRepository.Create(ctx, token); err != nil {
		return err
	}
	id, hash := token.ID, token.TokenHash
	t.tx.OnRollback(func() { t.remove(id, hash) })
	return nil
}

func (t *memoryTxRepository) MarkReplaced(ctx context.Context, id int64, newTokenHash string) (int64, error) {
	n, err := t.MemoryRepository.MarkReplaced(ctx, id, newTokenHash)
	if n > 0 {
		t.tx.OnRollback(func() { t.unrevoke(id) })
	}
	return n, err
}

func (t *memoryTxRepository) RevokeByHash(ctx context.Context, tokenHash string) (int64, error) {
	t.mu.Lock()
	id := t.byHash[tokenHash]
	t.mu.Unlock()

	n, err := t.MemoryRepository.RevokeByHash(ctx, tokenHash)
	if n > 0 {
		t.tx.OnRollback(func() { t.unrevoke(id) })
	}
	return n, err
}

func (r *MemoryRepository) remove(id int64, tokenHash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	delete(r.byHash, tokenHash)
}

// unrevoke reverts a revocation; only rows that were live before it are
// passed here.
func (r *MemoryRepository) unrevoke(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[id]; ok {
		t.RevokedAt = nil
		t.ReplacedByTokenHash = nil
	}
}

func (r *MemoryRepository) lookup(tokenHash string) (*models.RefreshToken, bool) {
	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, false
	}
	return r.rows[id], true
}

func copyToken(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		v := *t.RevokedAt
		c.RevokedAt = &v
	}
	if t.ReplacedByTokenHash != nil {
		v := *t.ReplacedByTokenHash
		c.ReplacedByTokenHash = &v
	}
	return &c
}
