package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var out map[string]int
	ok, err := c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "k"))

	got, release, err := c.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, got)
	release()
	assert.Nil(t, c.Client())
	assert.NoError(t, c.Close())
}

func TestNewWithoutAddrReturnsNil(t *testing.T) {
	assert.Nil(t, New("", "", 0))
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisLockAndJSON(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := New(addr, os.Getenv("REDIS_TEST_PASSWORD"), 13)
	defer c.Close()
	ctx := context.Background()
	if err := c.Client().Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	key := "qa-test:" + uuid.NewString()

	require.NoError(t, c.SetJSON(ctx, key, []int{1, 2}, time.Minute))
	var out []int
	ok, err := c.GetJSON(ctx, key, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, out)
	require.NoError(t, c.Delete(ctx, key))

	got, release, err := c.TryLock(ctx, key+":lock", time.Minute)
	require.NoError(t, err)
	require.True(t, got)
	again, _, err := c.TryLock(ctx, key+":lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)
	release()
	again, release2, err := c.TryLock(ctx, key+":lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
	release2()
}
