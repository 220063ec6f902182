package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := DefaultConfig()
	return &RedisCache{client: client, config: cfg}
}

func TestSessionRoute_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	route, err := c.GetSessionRoute(ctx, "ord_abc123")
	require.NoError(t, err)
	require.Nil(t, route, "miss before anything is cached")

	require.NoError(t, c.PutSessionRoute(ctx, "ord_abc123", SessionRoute{Region: "eu-west", ProxyID: "proxy-1"}))

	got, err := c.GetSessionRoute(ctx, "ord_abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "eu-west", got.Region)
	require.Equal(t, "proxy-1", got.ProxyID)
	require.False(t, got.UpdatedAt.IsZero())
}

func TestSessionRoute_DeleteClearsEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutSessionRoute(ctx, "ord_xyz789", SessionRoute{Region: "us-east", ProxyID: "proxy-2"}))
	require.NoError(t, c.DeleteSessionRoute(ctx, "ord_xyz789"))

	got, err := c.GetSessionRoute(ctx, "ord_xyz789")
	require.NoError(t, err)
	require.Nil(t, got)
}
