package cache

import (
	"context"
	"strings"
	"time"

	"collatz-cache/internal/metrics"
	"collatz-cache/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingStore wraps a SequenceStore with logging + metrics.
type LoggingStore struct {
	inner   SequenceStore
	backend string
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner SequenceStore, backend string) *LoggingStore {
	return &LoggingStore{inner: inner, backend: backend}
}

// Unwrap returns the wrapped store.
func (c *LoggingStore) Unwrap() SequenceStore {
	return c.inner
}

func (c *LoggingStore) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := c.inner.Exists(ctx, key)

	c.record(ctx, "exists", key, hitResult(ok, err), start, err)
	return ok, err
}

func (c *LoggingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)

	c.record(ctx, "get", key, hitResult(ok, err), start, err,
		zap.Int("bytes", len(value)),
	)
	return value, ok, err
}

func (c *LoggingStore) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value)

	c.record(ctx, "set", key, okResult(err), start, err,
		zap.Int("bytes", len(value)),
	)
	return err
}

// Create streams through the inner store, falling back to a buffered
// writer when it cannot stream. The commit is logged as a set.
func (c *LoggingStore) Create(ctx context.Context, key string) (EntryWriter, error) {
	start := time.Now()
	w, err := CreateEntry(ctx, c.inner, key)
	if err != nil {
		c.record(ctx, "create", key, "error", start, err)
		return nil, err
	}
	return &loggingEntry{EntryWriter: w, store: c, ctx: ctx, key: key, start: start}, nil
}

type loggingEntry struct {
	EntryWriter
	store   *LoggingStore
	ctx     context.Context
	key     string
	start   time.Time
	written int
}

func (e *loggingEntry) Write(p []byte) (int, error) {
	n, err := e.EntryWriter.Write(p)
	e.written += n
	return n, err
}

func (e *loggingEntry) Commit() error {
	err := e.EntryWriter.Commit()
	e.store.record(e.ctx, "set", e.key, okResult(err), e.start, err,
		zap.Int("bytes", e.written),
		zap.Bool("streamed", true),
	)
	return err
}

func (e *loggingEntry) Abort() error {
	err := e.EntryWriter.Abort()
	e.store.record(e.ctx, "abort", e.key, okResult(err), e.start, err,
		zap.Int("bytes", e.written),
	)
	return err
}

func (c *LoggingStore) record(
	ctx context.Context,
	op, key, result string,
	start time.Time,
	err error,
	extra ...zap.Field,
) {
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	metrics.StoreOpsTotal.WithLabelValues(op, result).Inc()

	fields := []zap.Field{
		zap.String("store_backend", c.backend),
		zap.String("op", op),
		zap.String("key", shortKey(key)),
		zap.String("store_result", result), // hit | miss | ok | error
		zap.Float64("latency_ms", latencyMs),
	}
	fields = append(fields, extra...)

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("sequence_store", append(fields, zap.Error(err))...)
		return
	}
	logger.Debug("sequence_store", fields...)
}

func hitResult(ok bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case ok:
		return "hit"
	default:
		return "miss"
	}
}

func okResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// shortKey trims verbatim decimal keys for log lines; hashed keys are
// already short.
func shortKey(key string) string {
	const maxLen = 64
	if len(key) <= maxLen || strings.Contains(key, "sha256_") {
		return key
	}
	return key[:maxLen] + "..."
}
