package handlers

import (
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"collatz-cache/internal/cache"
	"collatz-cache/pkg/logging/logging"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SequenceHandler serves stored sequences read-only.
type SequenceHandler struct {
	Store cache.SequenceStore
}

func NewSequenceHandler(store cache.SequenceStore) *SequenceHandler {
	return &SequenceHandler{Store: store}
}

// GetSequence handles GET /v1/sequences/{start}.
// Responds with the stored entry as text/plain, 404 when the start has not
// been computed yet.
func (h *SequenceHandler) GetSequence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	begin := time.Now()

	raw := strings.TrimSpace(chi.URLParam(r, "start"))
	start, ok := new(big.Int).SetString(raw, 10)
	if !ok || start.Sign() <= 0 {
		logger.Warn("invalid start", zap.Int("length", len(raw)))
		http.Error(w, "start must be a positive decimal integer", http.StatusBadRequest)
		return
	}

	key := cache.BuildSequenceKey(start).String()
	data, hit, err := h.Store.Get(ctx, key)
	if err != nil {
		logger.Error("sequence_lookup_error", zap.Error(err))
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	logger.Info("sequence_lookup",
		zap.Int("start_digits", len(raw)),
		zap.Bool("found", hit),
		zap.Int("bytes", len(data)),
		zap.Duration("latency", time.Since(begin)),
	)

	if !hit {
		http.Error(w, "sequence not computed", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
