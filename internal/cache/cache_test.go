package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/config"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "contest_end:4:17", DeadlineKey(4, 17))
	assert.Equal(t, "contest_solved:4:17", SolvedKey(4, 17))
}

func TestDeadlineRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Deadline(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			want := time.UnixMilli(1_700_000_123_456)
			require.NoError(t, store.SetDeadline(ctx, "k", want))

			got, ok, err := store.Deadline(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, want.Equal(got))
		})
	}
}

func TestMarkSolvedIsIdempotentUnion(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			n, err := store.MarkSolved(ctx, "s", 9)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			n, err = store.MarkSolved(ctx, "s", 3)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = store.MarkSolved(ctx, "s", 9)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			ids, err := store.Solved(ctx, "s")
			require.NoError(t, err)
			assert.Equal(t, []int{3, 9}, ids)
		})
	}
}

func TestRedisDeadlineIgnoresGarbage(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("k", "not-a-number"))

	_, ok, err := store.Deadline(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisEntriesExpire(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetDeadline(ctx, "k", time.Now()))
	_, err := store.MarkSolved(ctx, "s", 1)
	require.NoError(t, err)

	assert.Equal(t, entryTTL, mr.TTL("k"))
	assert.Equal(t, entryTTL, mr.TTL("s"))
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(config.RedisConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	mr := miniredis.RunT(t)
	store, err = New(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)
	_ = store.Close()
}

func TestNewRedisStoreWithClient(t *testing.T) {
	_, err := NewRedisStoreWithClient(nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	store, err := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	n, err := store.MarkSolved(context.Background(), "s", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
