package redis_test

import (
	"context"
	"strings"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/redis"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/storetest"
)

// setupRedisContainer starts a throwaway Redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func TestRedisStore(t *testing.T) {
	addr := setupRedisContainer(t)

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	storetest.Run(t, func(t *testing.T) sessionstore.Store {
		prefix := "test:" + strings.ReplaceAll(t.Name(), "/", ":") + ":"
		return redis.NewWithClient(client, prefix)
	})
}

func TestRedisStoreSharedAcrossConnections(t *testing.T) {
	addr := setupRedisContainer(t)
	ctx := context.Background()

	first, err := redis.New(ctx, redis.Options{Addr: addr})
	require.NoError(t, err)
	require.NoError(t, sessionstore.SetTokens(ctx, first, "access", "refresh"))
	require.NoError(t, first.Close())

	second, err := redis.New(ctx, redis.Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	v, err := second.Get(ctx, sessionstore.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh", v)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := redis.New(context.Background(), redis.Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
