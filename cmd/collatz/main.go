package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"collatz-cache/internal/cache"
	"collatz-cache/internal/collatz"
	"collatz-cache/internal/config"
	"collatz-cache/internal/handlers"
	"collatz-cache/internal/httpserver"
	"collatz-cache/internal/metrics"
	"collatz-cache/pkg/logging/logging"
)

const (
	modeRange  = "range"
	modeSingle = "single"
	modeServe  = "serve"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("collatz exited with error: %v", err)
	}
}

func run(args []string) error {
	mode, err := parseMode(args)
	if err != nil {
		return err
	}

	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger, err := logging.NewLogger(cfg.Logging())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	// ----- Metrics -----
	metrics.Register()

	logger.Info("loaded config",
		zap.String("mode", mode),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("store_dir", cfg.StoreDir),
		zap.Uint64("range_from", cfg.RangeFrom),
		zap.Uint64("range_to", cfg.RangeTo),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger.With(zap.String("mode", mode)))

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.StoreBackend == cache.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer func() { _ = redisClient.Close() }()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return errors.Wrap(err, errors.CodeNetwork, "redis ping failed")
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Store + engine -----
	store, err := cache.NewSequenceStore(cfg.Store(), redisClient)
	if err != nil {
		return err
	}
	engine := collatz.New(store, collatz.WithProgressEvery(cfg.ProgressEvery))

	if mode == modeServe && cfg.HTTPAddr == "" {
		return errors.New(errors.CodeInvalidConfig, "serve mode requires COLLATZ_HTTP_ADDR")
	}

	// workCtx ends when the work does, which stops the status server.
	workCtx, workDone := context.WithCancel(ctx)
	defer workDone()

	g, gctx := errgroup.WithContext(workCtx)

	if cfg.HTTPAddr != "" {
		srv := httpserver.NewServer(cfg.HTTPAddr, httpserver.NewRouter(logger, handlers.NewSequenceHandler(store)))
		startServer(gctx, g, srv, logger)
	}

	if mode != modeServe {
		g.Go(func() error {
			defer workDone()
			return work(gctx, engine, cfg, mode)
		})
	}

	err = g.Wait()
	switch {
	case err == nil:
		logger.Info("run complete")
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		if mode == modeServe {
			logger.Info("shutdown complete")
			return nil
		}
		logger.Warn("run interrupted; rerun to resume")
		return err
	default:
		logger.Error("run failed", zap.Error(err))
		return err
	}
}

func parseMode(args []string) (string, error) {
	if len(args) == 0 {
		return modeRange, nil
	}
	switch args[0] {
	case modeRange, modeSingle, modeServe:
		return args[0], nil
	default:
		return "", errors.Newf(errors.CodeInvalidInput, "unknown mode %q (want range, single or serve)", args[0])
	}
}

func work(ctx context.Context, engine *collatz.Engine, cfg config.Config, mode string) error {
	switch mode {
	case modeSingle:
		start, err := cfg.Start()
		if err != nil {
			return err
		}
		_, err = engine.Single(ctx, start)
		return err
	default:
		_, err := engine.Range(ctx, cfg.RangeFrom, cfg.RangeTo)
		return err
	}
}

// startServer runs srv in g and shuts it down once ctx is done.
func startServer(ctx context.Context, g *errgroup.Group, srv *http.Server, logger *zap.Logger) {
	g.Go(func() error {
		logger.Info("starting status server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, errors.CodeNetwork, "status server failed")
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	})
}
