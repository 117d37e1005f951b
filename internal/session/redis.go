package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

// RedisStore keeps each session as a JSON array of {role, content} under the session id key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store from a redis:// or rediss:// URL.
// The connection is established lazily on first use.
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opt)}, nil
}

// Get loads the history for sessionID.
func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]models.Turn, error) {
	raw, err := s.client.Get(ctx, sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	var turns []models.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	return turns, nil
}

// Set writes the full history with SETEX semantics.
func (s *RedisStore) Set(ctx context.Context, sessionID string, turns []models.Turn, ttl time.Duration) error {
	if turns == nil {
		turns = []models.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, sessionID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
