package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/modelforge/internal/config"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestSetGetDelete(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k", "missing"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "session", "x", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByPrefix(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		require.NoError(t, s.Set(ctx, ModelKey("u1", id), "{}", 0))
	}
	require.NoError(t, s.Set(ctx, ModelKey("u2", "c"), "{}", 0))

	keys, err := s.List(ctx, ModelPrefix("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user:u1:model:a", "user:u1:model:b"}, keys)
}

func TestJSONHelpers(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	type meta struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	require.NoError(t, SetJSON(ctx, s, "m", meta{Name: "cube", Size: 684}, 0))

	var got meta
	require.NoError(t, GetJSON(ctx, s, "m", &got))
	assert.Equal(t, meta{Name: "cube", Size: 684}, got)

	require.NoError(t, s.Set(ctx, "bad", "not json", 0))
	assert.Error(t, GetJSON(ctx, s, "bad", &got))
}

func TestClosedStore(t *testing.T) {
	_, s := setupStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}
