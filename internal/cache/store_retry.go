package cache

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"collatz-cache/pkg/logging/logging"

	"github.com/jmgilman/go/errors"
	"go.uber.org/zap"
)

// RetryConfig controls retries of the networked backends.
type RetryConfig struct {
	MaxRetries  int           // retry attempts after the first (default: 2)
	BaseBackoff time.Duration // initial backoff (default: 100ms)
	MaxBackoff  time.Duration // cap on a single wait (default: 5s)
}

// WithDefaults returns a copy of RetryConfig with defaults applied.
func (c RetryConfig) WithDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	return c
}

// RetryStore retries Exists, Get and Set of the wrapped store while the
// error is classified retryable. Streamed entries are not replayed.
type RetryStore struct {
	inner SequenceStore
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryStore wraps inner with retries.
func NewRetryStore(inner SequenceStore, cfg RetryConfig) *RetryStore {
	return &RetryStore{
		inner: inner,
		cfg:   cfg.WithDefaults(),
		sleep: sleepCtx,
	}
}

// Unwrap returns the wrapped store.
func (r *RetryStore) Unwrap() SequenceStore {
	return r.inner
}

func (r *RetryStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := r.do(ctx, "exists", key, func() error {
		var err error
		ok, err = r.inner.Exists(ctx, key)
		return err
	})
	return ok, err
}

func (r *RetryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		ok    bool
	)
	err := r.do(ctx, "get", key, func() error {
		var err error
		value, ok, err = r.inner.Get(ctx, key)
		return err
	})
	return value, ok, err
}

func (r *RetryStore) Set(ctx context.Context, key string, value []byte) error {
	return r.do(ctx, "set", key, func() error {
		return r.inner.Set(ctx, key, value)
	})
}

// Create opens a streamed entry on the inner store when it supports
// streaming. Otherwise the entry is buffered and committed through Set,
// which retries.
func (r *RetryStore) Create(ctx context.Context, key string) (EntryWriter, error) {
	if s, ok := r.inner.(StreamingStore); ok {
		return s.Create(ctx, key)
	}
	return &bufferedEntry{ctx: ctx, store: r, key: key}, nil
}

func (r *RetryStore) do(ctx context.Context, op, key string, fn func() error) error {
	maxAttempts := r.cfg.MaxRetries + 1

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}

		backoff := computeBackoff(r.cfg.BaseBackoff, r.cfg.MaxBackoff, attempt)
		logging.L(ctx).Warn("sequence_store_retry",
			zap.String("op", op),
			zap.String("key", shortKey(key)),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if serr := r.sleep(ctx, backoff); serr != nil {
			return serr
		}
	}

	return errors.WithContext(err, "attempts", maxAttempts)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.IsRetryable(err)
}

// computeBackoff returns a full-jitter wait in [0, min(base*2^attempt, limit)).
func computeBackoff(base, limit time.Duration, attempt int) time.Duration {
	const maxExponent = 10
	if attempt > maxExponent {
		attempt = maxExponent
	}

	ceiling := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if ceiling > limit {
		ceiling = limit
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
