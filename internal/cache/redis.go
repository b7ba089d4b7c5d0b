package cache

import (
	"context"

	"github.com/jmgilman/go/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements SequenceStore using Redis. Entries never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
	}
}

// key builds the final Redis key with prefix.
func (c *RedisStore) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Exists checks if a key exists without retrieving the value.
func (c *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	count, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeDatabase, "redis exists failed")
	}
	return count > 0, nil
}

// Get retrieves a value from Redis.
func (c *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	res, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		// Key does not exist, a clean miss.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeDatabase, "redis get failed")
	}

	return res, true, nil
}

// Set stores a value in Redis without expiry.
func (c *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return errors.Wrap(err, errors.CodeDatabase, "redis set failed")
	}

	return nil
}

// Delete removes a key from the store.
func (c *RedisStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return errors.Wrap(err, errors.CodeDatabase, "redis del failed")
	}
	return nil
}

// Ping checks if Redis connection is healthy.
func (c *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.CodeNetwork, "redis ping failed")
	}
	return nil
}
