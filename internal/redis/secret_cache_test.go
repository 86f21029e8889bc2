package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSecretCacheIntegration needs a reachable Redis (REDIS_ADDR, default localhost:6379).
func TestSecretCacheIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 2 * time.Second})
	r := NewRedis(client)
	defer r.Close()

	ctx := context.Background()
	if err := r.Ping(ctx); err != nil {
		t.Skip("Skipping test because Redis is not available:", err)
		return
	}

	slug := "test-gateway-" + time.Now().Format("20060102150405.000")

	_, found, err := r.GetSecret(ctx, slug)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.SetSecret(ctx, slug, "s3cret", time.Minute))
	secret, found, err := r.GetSecret(ctx, slug)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "s3cret", secret)

	filled, err := r.FillSecret(ctx, slug, "stale", time.Minute)
	require.NoError(t, err)
	assert.False(t, filled)
	secret, _, err = r.GetSecret(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	require.NoError(t, r.InvalidateSecret(ctx, slug))
	_, found, err = r.GetSecret(ctx, slug)
	require.NoError(t, err)
	assert.False(t, found)

	filled, err = r.FillSecret(ctx, slug, "fresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, filled)
	require.NoError(t, r.InvalidateSecret(ctx, slug))
}
