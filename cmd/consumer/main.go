package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/Sugavanesh17/UniConnect/internal/config"
	"github.com/Sugavanesh17/UniConnect/internal/consumer"
	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/logging"
	"github.com/Sugavanesh17/UniConnect/internal/persistence/postgres"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup("trust-consumer", cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	points, err := domain.LoadPointTable(cfg.PointTablePath)
	if err != nil {
		logger.Error("failed to load point table", "path", cfg.PointTablePath, "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	service := domain.NewService(postgres.NewRepository(pool), domain.WithPointTable(points))
	handler := consumer.NewLedgerHandler(service, logger.With("component", "ledger_handler"))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("consumer metrics listening", "address", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		topicLogger := logger.With("component", "consumer", "topic", topic)
		proc := consumer.NewProcessor(reader, handler,
			consumer.WithLogger(topicLogger),
			consumer.WithRetryDelay(cfg.ConsumerRetryDelay),
		)

		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			topicLogger.Info("consumer started", "group", cfg.ConsumerGroupID)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				topicLogger.Error("consumer stopped with error", "error", err)
			}
		}(reader)
	}

	<-stop
	logger.Info("consumer shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	wg.Wait()
}
