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

	"github.com/hashicorp/go-hclog"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/bootstrap"
	"docvault/internal/config"
	"docvault/internal/logging"
	"docvault/internal/otel"
	"docvault/internal/queue"
	"docvault/internal/queue/kafka"
)

func main() {
	cfg := config.Load()
	logger := logging.New("docvault-worker", cfg.Log, nil)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger hclog.Logger) error {
	if cfg.MinIO.Endpoint == "" {
		return errors.New("MINIO_ENDPOINT is required for a standalone worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "docvault-worker", logger)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := bootstrap.Database(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := bootstrap.Storage(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	proc, err := bootstrap.Processor(db, store, cfg, reg, logger)
	if err != nil {
		return err
	}

	metrics := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	defer metrics.Close()

	// Each consumer is a group member with its own client; partitions are
	// spread across them.
	workers := max(cfg.Queue.Workers, 1)
	policy := queue.PolicyFromConfig(cfg.Queue)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		consumer, err := kafka.NewConsumer(cfg.Queue, policy, logger.With("consumer", i))
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			if err := consumer.Consume(ctx, proc.Handle); err != nil && !errors.Is(err, context.Canceled) {
				errs <- err
				stop()
			}
		}()
	}
	logger.Info("scan workers started", "workers", workers, "topic", cfg.Queue.Topic, "group", cfg.Queue.ConsumerGroup)

	wg.Wait()
	close(errs)
	return <-errs
}
