package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: store operations by op (exists|get|set|create) and result (hit|miss|ok|error).
	StoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collatz_store_ops_total",
			Help: "Sequence store operations by operation and result.",
		},
		[]string{"op", "result"},
	)

	// Counter: finished engine runs by status (computed|spliced|skipped|single).
	SequencesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collatz_sequences_total",
			Help: "Sequences handled by the engine, by outcome.",
		},
		[]string{"status"},
	)

	// Counter: transform applications.
	StepsComputedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collatz_steps_computed_total",
			Help: "Total number of Collatz steps computed.",
		},
	)

	// Counter: values copied from stored suffixes instead of being computed.
	ValuesReusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collatz_values_reused_total",
			Help: "Total number of sequence values reused from stored suffixes.",
		},
	)

	// Counter: stored suffixes rejected by validation.
	InvalidSuffixTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collatz_invalid_suffix_total",
			Help: "Stored suffixes that failed validation and were not reused.",
		},
	)

	// Histogram: wall time of a single compute call in seconds.
	ComputeSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collatz_compute_seconds",
			Help:    "Time spent computing and persisting one sequence.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 60, 300},
		},
		[]string{"status"},
	)

	// Histogram: status server HTTP latency in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collatz_http_latency_seconds",
			Help:    "HTTP request latency for the status server in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"route", "method", "status_code"},
	)
)

var registerOnce sync.Once

// Register is called in main() to register metrics. Later calls are no-ops.
func Register() {
	registerOnce.Do(mustRegister)
}

func mustRegister() {
	prometheus.MustRegister(
		StoreOpsTotal,
		SequencesTotal,
		StepsComputedTotal,
		ValuesReusedTotal,
		InvalidSuffixTotal,
		ComputeSeconds,
		HTTPLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures status server latency for each HTTP request.
// The chi route pattern is used as the label to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		HTTPLatencySeconds.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
