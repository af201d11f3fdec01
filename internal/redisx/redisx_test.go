package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStatusCache(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()
	c := &StatusCache{RDB: rdb}

	_, ok, err := c.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "o1", []byte(`{"status":"pending"}`)))
	s, ok, err := c.Get(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"status":"pending"}`, s)
	assert.Equal(t, TTLStatusCache, mr.TTL("order_status:o1"))

	require.NoError(t, c.Invalidate(ctx, "o1"))
	_, ok, err = c.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeenSet(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()
	s := NewWebhookSeen(rdb)

	seen, err := s.Seen(ctx, "pix", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Mark(ctx, "pix", "evt_1"))
	seen, err = s.Seen(ctx, "pix", "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.True(t, mr.Exists("webhook:pix:evt_1"))

	seen, err = s.Seen(ctx, "card", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "namespaces are independent")
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	assert.NoError(t, Ping(context.Background(), rdb))

	mr.Close()
	assert.Error(t, Ping(context.Background(), rdb))
}
