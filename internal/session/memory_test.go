package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)

	turns := []models.Turn{{Role: models.RoleUser, Content: "q"}, {Role: models.RoleAssistant, Content: "a"}}
	require.NoError(t, store.Set(ctx, "s1", turns, time.Hour))

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, turns, got)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Copies(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	turns := []models.Turn{{Role: models.RoleUser, Content: "original"}}
	require.NoError(t, store.Set(ctx, "s1", turns, time.Hour))
	turns[0].Content = "changed"

	got, _ := store.Get(ctx, "s1")
	assert.Equal(t, "original", got[0].Content)

	got[0].Content = "changed again"
	again, _ := store.Get(ctx, "s1")
	assert.Equal(t, "original", again[0].Content)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", []models.Turn{{Role: models.RoleUser, Content: "q"}}, 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore("redis", "redis://localhost:6379/0")
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	_ = s.Close()

	_, err = NewStore("memcached", "")
	assert.Error(t, err)
}
