package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory(0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v1", 0))
	require.NoError(t, c.Set(ctx, "k", "v2", 0))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestMemory_TTL(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	require.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_CanceledContext(t *testing.T) {
	c := NewMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, c.Set(ctx, "k", "v", 0), context.Canceled)
	_, _, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

// Интеграционный тест Redis: GO_TEST_INTEGRATION=1 go test ./internal/cache -run Redis -v
func TestRedis_Integration(t *testing.T) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rc, err := NewRedisCache(fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	_, ok, err := rc.Get(ctx, "RECENT_ANNOUNCEMENTS")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rc.Set(ctx, "RECENT_ANNOUNCEMENTS", "Last chance", 0))
	v, ok, err := rc.Get(ctx, "RECENT_ANNOUNCEMENTS")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Last chance", v)

	require.NoError(t, rc.Set(ctx, "short", "v", 50*time.Millisecond))
	require.Eventually(t, func() bool {
		_, ok, _ := rc.Get(ctx, "short")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache("://bad", "")
	require.Error(t, err)
}
