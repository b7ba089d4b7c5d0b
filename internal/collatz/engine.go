// Package collatz computes Collatz trajectories of arbitrarily large
// integers and persists them in a SequenceStore, splicing in stored
// suffixes instead of recomputing them.
package collatz

import (
	"bufio"
	"context"
	"math/big"
	"time"

	"collatz-cache/internal/cache"
	"collatz-cache/internal/metrics"
	"collatz-cache/pkg/logging/logging"

	"github.com/jmgilman/go/errors"
	"go.uber.org/zap"
)

// Status is the outcome of one engine run.
type Status string

const (
	// StatusComputed: every value was computed.
	StatusComputed Status = "computed"
	// StatusSpliced: the tail was copied from a stored suffix.
	StatusSpliced Status = "spliced"
	// StatusSkipped: an entry for the start already existed.
	StatusSkipped Status = "skipped"
	// StatusSingle: a cache-less single-shot run.
	StatusSingle Status = "single"
)

const (
	defaultProgressEvery = 1000
	// ctx is polled once per this many steps.
	cancelCheckEvery = 256
	// buffer of streamed single-shot writes
	singleWriteBuffer = 1 << 20
)

// Result describes one engine run.
type Result struct {
	Start  *big.Int
	Status Status
	// Steps is the length of the persisted sequence. Zero when skipped.
	Steps int
	// Computed counts transform applications performed by this run.
	Computed int
	// ReusedFrom is the value whose stored suffix was spliced in.
	ReusedFrom *big.Int
	// Reused counts values copied from the stored suffix.
	Reused int
	// Max is the largest value reached, start included. Nil when skipped.
	Max *big.Int
	// Sequence is the persisted sequence; nil for skipped and single runs.
	Sequence Sequence
}

// Engine computes and persists sequences.
type Engine struct {
	store         cache.SequenceStore
	progressEvery int
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgressEvery sets how often progress is logged: every n starts in
// Range and every n steps in Single. n <= 0 keeps the default.
func WithProgressEvery(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.progressEvery = n
		}
	}
}

// New creates an engine persisting to store.
func New(store cache.SequenceStore, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		progressEvery: defaultProgressEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the store key of start.
func Key(start *big.Int) string {
	return cache.BuildSequenceKey(start).String()
}

// Compute produces and persists the sequence of start.
//
// If start already has an entry nothing is computed. Otherwise the
// trajectory is walked until it reaches 1 or a value other than start that
// has a valid stored sequence, whose values are appended as the tail.
func (e *Engine) Compute(ctx context.Context, start *big.Int) (Result, error) {
	if err := checkStart(start); err != nil {
		return Result{}, err
	}

	begin := time.Now()
	logger := logging.L(ctx)
	key := Key(start)

	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return Result{}, wrapStart(err, errors.CodeDatabase, "check stored sequence", start)
	}
	if exists {
		logger.Debug("sequence_skipped", zap.Stringer("start", start))
		observe(StatusSkipped, begin)
		return Result{Start: start, Status: StatusSkipped}, nil
	}

	res := Result{
		Start:  start,
		Status: StatusComputed,
		Max:    start,
	}

	current := start
	seq := Sequence{}
	for !isOne(current) {
		if current.Cmp(start) != 0 {
			suffix, ok, err := e.loadSuffix(ctx, current)
			if err != nil {
				return Result{}, wrapStart(err, errors.CodeDatabase, "load stored suffix", start)
			}
			if ok {
				seq = append(seq, suffix...)
				if m := suffix.Max(); m != nil && m.Cmp(res.Max) > 0 {
					res.Max = m
				}
				res.Status = StatusSpliced
				res.ReusedFrom = current
				res.Reused = len(suffix)
				break
			}
		}

		if res.Computed%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		next := Step(new(big.Int), current)
		seq = append(seq, next)
		if next.Cmp(res.Max) > 0 {
			res.Max = next
		}
		current = next
		res.Computed++
	}

	if err := e.persist(ctx, key, seq); err != nil {
		return Result{}, wrapStart(err, errors.CodeDatabase, "persist sequence", start)
	}

	res.Steps = len(seq)
	res.Sequence = seq

	metrics.StepsComputedTotal.Add(float64(res.Computed))
	metrics.ValuesReusedTotal.Add(float64(res.Reused))
	observe(res.Status, begin)

	fields := []zap.Field{
		zap.Stringer("start", start),
		zap.String("status", string(res.Status)),
		zap.Int("steps", res.Steps),
		zap.Int("computed", res.Computed),
	}
	if res.ReusedFrom != nil {
		fields = append(fields,
			zap.Stringer("reused_from", res.ReusedFrom),
			zap.Int("reused", res.Reused),
		)
	}
	logger.Debug("sequence_done", fields...)

	return res, nil
}

// loadSuffix returns the stored sequence of v if it is a valid trajectory
// of v. A stored entry that does not validate is logged and ignored.
func (e *Engine) loadSuffix(ctx context.Context, v *big.Int) (Sequence, bool, error) {
	data, ok, err := e.store.Get(ctx, Key(v))
	if err != nil || !ok {
		return nil, false, err
	}

	suffix, err := ParseSequence(data)
	if err == nil {
		err = suffix.Validate(v)
	}
	if err != nil {
		metrics.InvalidSuffixTotal.Inc()
		logging.L(ctx).Warn("stored_suffix_invalid",
			zap.Stringer("value", v),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return nil, false, nil
	}
	return suffix, true, nil
}

func (e *Engine) persist(ctx context.Context, key string, seq Sequence) error {
	w, err := cache.CreateEntry(ctx, e.store, key)
	if err != nil {
		return err
	}
	if _, err := seq.WriteTo(w); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Commit()
}

// Single computes the full sequence of start without consulting the store
// and streams it to the entry of start, replacing any existing entry.
func (e *Engine) Single(ctx context.Context, start *big.Int) (Result, error) {
	if err := checkStart(start); err != nil {
		return Result{}, err
	}

	begin := time.Now()
	logger := logging.L(ctx).With(zap.Int("start_digits", len(start.String())))

	w, err := cache.CreateEntry(ctx, e.store, Key(start))
	if err != nil {
		return Result{}, wrapStart(err, errors.CodeDatabase, "open entry", start)
	}

	res, err := e.stream(ctx, start, bufio.NewWriterSize(w, singleWriteBuffer), logger)
	if err != nil {
		_ = w.Abort()
		return Result{}, err
	}

	logger.Info("single_writing", zap.Int("steps", res.Steps))
	if err := w.Commit(); err != nil {
		return Result{}, wrapStart(err, errors.CodeDatabase, "persist sequence", start)
	}

	metrics.StepsComputedTotal.Add(float64(res.Computed))
	observe(StatusSingle, begin)

	logger.Info("single_done",
		zap.Int("steps", res.Steps),
		zap.Int("max_digits", len(res.Max.String())),
		zap.Duration("elapsed", time.Since(begin)),
	)
	return res, nil
}

func (e *Engine) stream(ctx context.Context, start *big.Int, bw *bufio.Writer, logger *zap.Logger) (Result, error) {
	res := Result{
		Start:  start,
		Status: StatusSingle,
		Max:    start,
	}

	current := new(big.Int).Set(start)
	var buf []byte
	for !isOne(current) {
		if res.Computed%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		Step(current, current)
		res.Computed++
		if current.Cmp(res.Max) > 0 {
			res.Max = new(big.Int).Set(current)
		}

		if res.Computed > 1 {
			if err := bw.WriteByte('\n'); err != nil {
				return Result{}, wrapStart(err, errors.CodeDatabase, "write sequence", start)
			}
		}
		buf = current.Append(buf[:0], 10)
		if _, err := bw.Write(buf); err != nil {
			return Result{}, wrapStart(err, errors.CodeDatabase, "write sequence", start)
		}

		if res.Computed%e.progressEvery == 0 {
			logger.Info("single_progress",
				zap.Int("steps", res.Computed),
				zap.Int("current_digits", len(buf)),
			)
		}
	}

	if err := bw.Flush(); err != nil {
		return Result{}, wrapStart(err, errors.CodeDatabase, "write sequence", start)
	}

	res.Steps = res.Computed
	return res, nil
}

func checkStart(start *big.Int) error {
	if start == nil || start.Sign() <= 0 {
		return errors.New(errors.CodeInvalidInput, "start must be a positive integer")
	}
	return nil
}

// wrapStart wraps err unless it is a context error, attaching a short form
// of start for log output.
func wrapStart(err error, code errors.ErrorCode, msg string, start *big.Int) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrapped := errors.Wrap(err, code, msg)
	return errors.WithContext(wrapped, "start", digitsPrefix(start))
}

func digitsPrefix(n *big.Int) string {
	const maxLen = 32
	s := n.String()
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func observe(status Status, begin time.Time) {
	metrics.SequencesTotal.WithLabelValues(string(status)).Inc()
	metrics.ComputeSeconds.WithLabelValues(string(status)).Observe(time.Since(begin).Seconds())
}
