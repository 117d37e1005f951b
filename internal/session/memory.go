package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

// MemoryStore is an in-process Store. Histories are lost on restart.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose expired entries are purged every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if x, found := s.cache.Get(sessionID); found {
		turns := x.([]models.Turn)
		return append([]models.Turn{}, turns...), nil
	}
	return []models.Turn{}, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID string, turns []models.Turn, ttl time.Duration) error {
	s.cache.Set(sessionID, append([]models.Turn{}, turns...), ttl)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet purged.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
