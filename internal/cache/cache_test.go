package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, zap.NewNop()), mr
}

func TestGetSetJSON(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got entry
	assert.False(t, c.GetJSON(ctx, "k", &got))

	c.SetJSON(ctx, "k", entry{Name: "Молоко", Count: 3}, time.Minute)
	require.True(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, entry{Name: "Молоко", Count: 3}, got)
}

func TestGetJSONCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var got entry
	assert.False(t, c.GetJSON(context.Background(), "k", &got))
}

func TestExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetJSON(ctx, "k", entry{Name: "x"}, time.Minute)
	mr.FastForward(2 * time.Minute)

	var got entry
	assert.False(t, c.GetJSON(ctx, "k", &got))
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetJSON(ctx, "a", entry{}, time.Minute)
	c.SetJSON(ctx, "b", entry{}, time.Minute)
	c.Delete(ctx, "a", "b")

	var got entry
	assert.False(t, c.GetJSON(ctx, "a", &got))
	assert.False(t, c.GetJSON(ctx, "b", &got))
}

func TestInvalidatePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetJSON(ctx, "catalog:products:1", entry{}, time.Minute)
	c.SetJSON(ctx, "catalog:products:2", entry{}, time.Minute)
	c.SetJSON(ctx, "catalog:categories", entry{}, time.Minute)

	c.InvalidatePattern(ctx, "catalog:products:*")

	var got entry
	assert.False(t, c.GetJSON(ctx, "catalog:products:1", &got))
	assert.False(t, c.GetJSON(ctx, "catalog:products:2", &got))
	assert.True(t, c.GetJSON(ctx, "catalog:categories", &got))
}

func TestNilCacheIsAMiss(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	var got entry
	assert.False(t, c.GetJSON(ctx, "k", &got))
	c.SetJSON(ctx, "k", entry{}, time.Minute)
	c.Delete(ctx, "k")
	c.InvalidatePattern(ctx, "*")
}
