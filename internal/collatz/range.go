package collatz

import (
	"context"
	"math/big"
	"time"

	"collatz-cache/pkg/logging/logging"

	"github.com/jmgilman/go/errors"
	"go.uber.org/zap"
)

// RangeStats summarises a Range run. Skipped starts contribute to the
// counts only, since their sequences are not loaded.
type RangeStats struct {
	From, To uint64

	Computed int
	Spliced  int
	Skipped  int

	// LongestStart has the most steps among the starts processed.
	LongestStart uint64
	LongestSteps int

	// LargestStart reaches LargestValue, the highest value seen.
	LargestStart uint64
	LargestValue *big.Int

	Elapsed time.Duration
}

// Range runs Compute for every start in [from, to], ascending. Later starts
// reuse entries written by earlier ones. It stops at the first error and
// returns the stats gathered so far.
func (e *Engine) Range(ctx context.Context, from, to uint64) (RangeStats, error) {
	stats := RangeStats{From: from, To: to}
	if from == 0 {
		return stats, errors.New(errors.CodeInvalidInput, "range must start at 1 or above")
	}
	if from > to {
		return stats, errors.Newf(errors.CodeInvalidInput, "range start %d is after range end %d", from, to)
	}

	begin := time.Now()
	logger := logging.L(ctx)
	logger.Info("range_start", zap.Uint64("from", from), zap.Uint64("to", to))

	for n := from; ; n++ {
		res, err := e.Compute(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			stats.Elapsed = time.Since(begin)
			return stats, err
		}
		stats.add(n, res)

		if (n-from+1)%uint64(e.progressEvery) == 0 {
			logger.Info("range_progress",
				zap.Uint64("completed_up_to", n),
				zap.Int("computed", stats.Computed),
				zap.Int("spliced", stats.Spliced),
				zap.Int("skipped", stats.Skipped),
			)
		}

		if n == to {
			break
		}
	}

	stats.Elapsed = time.Since(begin)

	fields := []zap.Field{
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("computed", stats.Computed),
		zap.Int("spliced", stats.Spliced),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", stats.Elapsed),
	}
	if stats.LargestValue != nil {
		fields = append(fields,
			zap.Uint64("longest_start", stats.LongestStart),
			zap.Int("longest_steps", stats.LongestSteps),
			zap.Uint64("largest_start", stats.LargestStart),
			zap.Stringer("largest_value", stats.LargestValue),
		)
	}
	logger.Info("range_done", fields...)

	return stats, nil
}

func (s *RangeStats) add(n uint64, res Result) {
	switch res.Status {
	case StatusSkipped:
		s.Skipped++
		return
	case StatusSpliced:
		s.Spliced++
	default:
		s.Computed++
	}

	if res.Steps > s.LongestSteps {
		s.LongestStart = n
		s.LongestSteps = res.Steps
	}
	if res.Max != nil && (s.LargestValue == nil || res.Max.Cmp(s.LargestValue) > 0) {
		s.LargestStart = n
		s.LargestValue = res.Max
	}
}
