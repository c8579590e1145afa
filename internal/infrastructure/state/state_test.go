package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackBot/internal/ports"
)

func exerciseStore(t *testing.T, store ports.DialogStore) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Set(ctx, 1, "awaiting_feedback", time.Minute))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "awaiting_feedback", got)

	got, err = store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Clear(ctx, 1))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemory()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(context.Background(), 7, "set_role:42", time.Minute))
	now = now.Add(2 * time.Minute)

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	store, err := NewRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), 9, "awaiting_feedback", time.Minute))
	assert.True(t, mr.Exists("feedbackbot:dialog:9"))

	mr.FastForward(2 * time.Minute)
	got, err := store.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisWithClient(client)
	mr.Close()

	_, err := store.Get(context.Background(), 1)
	require.Error(t, err)
	_ = client.Close()
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedis(context.Background(), "::not a url")
	require.Error(t, err)
}
