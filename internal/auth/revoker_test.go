package auth

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return client, server
}

func TestRedisRevoker_RevokeAndCheck(t *testing.T) {
	client, server := newTestRedis(t)
	rv := NewRedisRevoker(client, "")
	ctx := context.Background()

	require.NoError(t, rv.Revoke(ctx, "sess-1", 2*time.Minute))

	revoked, err := rv.IsRevoked(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := server.TTL(defaultRevocationPrefix + ":sess-1")
	assert.True(t, ttl > 0 && ttl <= 2*time.Minute, "unexpected ttl %v", ttl)

	server.FastForward(3 * time.Minute)
	revoked, err = rv.IsRevoked(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	rv := NewRedisRevoker(client, "test")

	assert.Error(t, rv.Revoke(context.Background(), " ", time.Minute))
	_, err := rv.IsRevoked(context.Background(), "")
	assert.Error(t, err)

	// an already-expired session needs no entry
	require.NoError(t, rv.Revoke(context.Background(), "sess-2", -time.Second))
	revoked, err := rv.IsRevoked(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
