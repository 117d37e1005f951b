package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := newRedisStore(t)
	turns, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	want := []models.Turn{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
	}
	require.NoError(t, store.Set(ctx, "s1", want, time.Hour))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := mr.Get("s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"hello"},{"role":"assistant","content":"hi there"}]`, raw)
	assert.Equal(t, time.Hour, mr.TTL("s1"))
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", []models.Turn{{Role: models.RoleUser, Content: "q"}}, time.Hour))
	mr.FastForward(30 * time.Minute)
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Writing resets the expiry window.
	require.NoError(t, store.Set(ctx, "s1", got, time.Hour))
	mr.FastForward(45 * time.Minute)
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	mr.FastForward(time.Hour)
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStore_Isolation(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []models.Turn{{Role: models.RoleUser, Content: "from a"}}, time.Hour))
	require.NoError(t, store.Set(ctx, "b", []models.Turn{{Role: models.RoleUser, Content: "from b"}}, time.Hour))

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "from a", a[0].Content)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("bad", "not json"))
	_, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()
	mr.Close()

	ctx := context.Background()
	_, err = store.Get(ctx, "s1")
	assert.Error(t, err)
	assert.Error(t, store.Ping(ctx))
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore("http://localhost:6379")
	assert.Error(t, err)
}
