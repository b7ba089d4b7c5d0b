package cache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Key(t *testing.T) {
	s := NewRedisStore(nil, RedisConfig{Prefix: "collatz"})
	assert.Equal(t, "collatz:collatz_conjecture_6", s.key("collatz_conjecture_6"))

	bare := NewRedisStore(nil, RedisConfig{})
	assert.Equal(t, "collatz_conjecture_6", bare.key("collatz_conjecture_6"))
}

// Runs against a live server when COLLATZ_TEST_REDIS_ADDR is set.
func TestRedisStore_Live(t *testing.T) {
	addr := os.Getenv("COLLATZ_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COLLATZ_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisStore(client, RedisConfig{Prefix: "collatz-test"})
	require.NoError(t, s.Ping(ctx))

	key := "collatz_conjecture_6"
	t.Cleanup(func() { _ = s.Delete(context.Background(), key) })

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, []byte("3\n10\n5\n16\n8\n4\n2\n1")))

	got, hit, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "3\n10\n5\n16\n8\n4\n2\n1", string(got))

	ttl, err := client.TTL(ctx, s.key(key)).Result()
	require.NoError(t, err)
	assert.Negative(t, ttl, "entries must not expire")
}
