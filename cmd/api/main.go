package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sugavanesh17/UniConnect/internal/api"
	"github.com/Sugavanesh17/UniConnect/internal/auth"
	"github.com/Sugavanesh17/UniConnect/internal/config"
	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/logging"
	"github.com/Sugavanesh17/UniConnect/internal/outbox"
	"github.com/Sugavanesh17/UniConnect/internal/persistence/memory"
	"github.com/Sugavanesh17/UniConnect/internal/persistence/postgres"
	httptransport "github.com/Sugavanesh17/UniConnect/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup("trust-api", cfg.Env, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("trust api exited", "error", err)
		os.Exit(1)
	}
	logger.Info("trust api stopped")
}

// run owns every resource the API opens so deferred cleanup always happens
// before the process exits.
func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	points, err := domain.LoadPointTable(cfg.PointTablePath)
	if err != nil {
		return fmt.Errorf("load point table %q: %w", cfg.PointTablePath, err)
	}

	var (
		store      domain.Store
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, ledger is not durable")
		store = memory.NewStore()
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		store = postgres.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithProducerLogger(logger.With("component", "kafka_producer")))
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.With("component", "outbox")))
		go dispatcher.Start(ctx)
		defer func() {
			cancel()
			dispatcher.Wait()
		}()
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	service := domain.NewService(store, domain.WithPointTable(points))
	logger.Info("point table loaded", "version", points.Version)

	mux := http.NewServeMux()
	api.NewHandler(service).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	limiter := httptransport.NewRateLimiter(httptransport.RateLimit{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Burst:             cfg.RateLimitBurst,
	})
	handler := httptransport.Chain(mux,
		httptransport.Recoverer(logger),
		httptransport.RequestLogger(logger),
		httptransport.CORS(cfg.CORSOrigin),
		authMiddleware.Wrap,
		limiter.Middleware,
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, handler)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("trust api listening", "address", cfg.HTTPAddress, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-shutdownCh:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	return nil
}
