package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"collatz-cache/internal/handlers"
	"collatz-cache/internal/metrics"
	"collatz-cache/internal/middleware"
)

// NewRouter wires the status server routes.
func NewRouter(baseLogger *zap.Logger, seqHandler *handlers.SequenceHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(chimw.Timeout(15 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sequences/{start}", seqHandler.GetSequence)
		r.Head("/sequences/{start}", seqHandler.GetSequence)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())

	return r
}

// NewServer returns an http.Server for addr with bounded read/write timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
