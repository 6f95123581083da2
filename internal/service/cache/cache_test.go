package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "signallab")
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestKey(t *testing.T) {
	a := Key("sentiment", []byte("I love this"))
	assert.Equal(t, a, Key("sentiment", []byte("I love this")))
	assert.NotEqual(t, a, Key("forecast", []byte("I love this")))
	assert.NotEqual(t, Key("k", []byte("ab"), []byte("c")), Key("k", []byte("a"), []byte("bc")))
	assert.Len(t, a, len("sentiment:")+64)
}

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewTTLCache(withNow(func() time.Time { return now }))

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(WithMaxEntries(2))
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.SetBytes(ctx, k, []byte(k), 0))
	}
	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.GetBytes(ctx, "d")
	assert.True(t, ok, "latest write survives eviction")
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rc := newRedis(t)

	_, ok, err := rc.GetBytes(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.SetBytes(ctx, "sentiment:abc", []byte(`[]`), time.Minute))
	assert.True(t, mr.Exists("signallab:sentiment:abc"))

	b, ok, err := rc.GetBytes(ctx, "sentiment:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(b))

	mr.FastForward(2 * time.Minute)
	_, ok, err = rc.GetBytes(ctx, "sentiment:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheBackendError(t *testing.T) {
	mr, rc := newRedis(t)
	mr.SetError("LOADING")
	_, _, err := rc.GetBytes(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, rc.SetBytes(context.Background(), "k", []byte("v"), 0))
}

func TestLayeredPromotesFromL2(t *testing.T) {
	ctx := context.Background()
	_, rc := newRedis(t)
	l1 := NewTTLCache()
	c := NewLayered(l1, rc, time.Minute)

	require.NoError(t, rc.SetBytes(ctx, "k", []byte("v"), 0))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(b))

	_, ok, _ = l1.GetBytes(ctx, "k")
	assert.True(t, ok, "L2 hit is copied into L1")

	require.NoError(t, c.SetBytes(ctx, "w", []byte("x"), time.Hour))
	_, ok, _ = rc.GetBytes(ctx, "w")
	assert.True(t, ok)
	_, ok, _ = l1.GetBytes(ctx, "w")
	assert.True(t, ok)
}
