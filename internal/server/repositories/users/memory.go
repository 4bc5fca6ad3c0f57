package users

import (
	"context"
	"sync"
	"time"

	"github.com/hefi-app/hefi/internal/common"
	"github.com/hefi-app/hefi/internal/dbx"
	"github.com/hefi-app/hefi/internal/server/models"
)

// MemoryRepository keeps users in process memory. Safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]models.User
	byEmail map[string]int64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]models.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorConflict
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = r.now()

	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID

	return user, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

// Bind returns r itself, or a view whose inserts are undone on rollback when
// db is an in-memory transaction handle.
func (r *MemoryRepository) Bind(db dbx.DBTX) Repository {
	if tx, ok := db.(interface{ OnRollback(func()) }); ok {
		return &memoryTxRepository{MemoryRepository: r, onRollback: tx.OnRollback}
	}
	return r
}

type memoryTxRepository struct {
	*MemoryRepository
	onRollback func(func())
}

func (t *memoryTxRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	u, err := t.MemoryRepository.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	id, email := u.ID, u.Email
	t.onRollback(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.byID, id)
		delete(t.byEmail, email)
	})
	return u, nil
}
