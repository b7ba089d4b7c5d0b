package cache

import (
	"strings"

	"github.com/jmgilman/go/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultDir is the cache directory used when none is configured.
const DefaultDir = "collatz"

// Supported store backends.
const (
	BackendDisk   = "disk"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

type Config struct {
	Backend string
	// Dir is the cache directory of the disk backend.
	Dir string
	// Prefix namespaces keys in the redis and s3 backends.
	Prefix string
	S3     S3Config
	// Retry applies to the redis and s3 backends.
	Retry RetryConfig
}

// NewSequenceStore builds the configured backend wrapped in a LoggingStore.
// redisClient is only used by the redis backend.
func NewSequenceStore(cfg Config, redisClient *redis.Client) (*LoggingStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))

	var inner SequenceStore
	switch backend {
	case "", BackendDisk:
		backend = BackendDisk
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultDir
		}
		s, err := NewDiskStore(dir)
		if err != nil {
			return nil, err
		}
		inner = s
	case BackendMemory:
		inner = NewMemoryStore()
	case BackendRedis:
		if redisClient == nil {
			return nil, errors.New(errors.CodeInvalidConfig, "redis backend requires a redis client")
		}
		inner = NewRetryStore(NewRedisStore(redisClient, RedisConfig{Prefix: cfg.Prefix}), cfg.Retry)
	case BackendS3:
		s3cfg := cfg.S3
		if s3cfg.Prefix == "" {
			s3cfg.Prefix = cfg.Prefix
		}
		s, err := NewS3Store(s3cfg)
		if err != nil {
			return nil, err
		}
		inner = NewRetryStore(s, cfg.Retry)
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}

	return NewLoggingStore(inner, backend), nil
}
