//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T, ctx context.Context) (*RedisCache, func()) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)

	return client, func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
}

func TestIntegration_IncrWithTTL(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupRedisContainer(t, ctx)
	defer cleanup()

	require.NoError(t, client.Ping(ctx))

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, "rl:login:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	ttl, err := client.rdb.TTL(ctx, "rl:login:10.0.0.1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	got, err := client.IncrWithTTL(ctx, "rl:register:10.0.0.1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	require.Error(t, err)
}
