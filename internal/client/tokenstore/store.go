// Package tokenstore persists the client's TokenPair between runs.
package tokenstore

import (
	"context"
	"sync"

	"github.com/hefi-app/hefi/internal/client/models"
)

// Key is the record name the pair is stored under.
const Key = "hefi_tokens_v1"

// Store loads and saves the single TokenPair of this client. Load returns
// nil and no error when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*models.TokenPair, error)
	Save(ctx context.Context, pair *models.TokenPair) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the pair for the life of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	pair *models.TokenPair
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return nil, nil
	}
	p := *s.pair
	return &p, nil
}

func (s *MemoryStore) Save(ctx context.Context, pair *models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *pair
	s.pair = &p
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
