// Package bootstrap holds the construction steps shared by cmd/api and
// cmd/worker.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/repository/postgres"
	"docvault/internal/scanner"
	"docvault/internal/service"
	"docvault/internal/storage"
	"docvault/internal/worker"
)

// ErrMemoryStorageNeedsMemoryQueue rejects a split API/worker deployment
// whose content lives in process memory.
var ErrMemoryStorageNeedsMemoryQueue = errors.New("in-memory storage requires QUEUE_DRIVER=memory")

// Database opens the pool and applies the schema.
func Database(ctx context.Context, cfg config.DatabaseConfig, logger hclog.Logger) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Host); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Storage connects to MinIO, or falls back to process memory when no
// endpoint is configured.
func Storage(ctx context.Context, cfg *config.AppConfig, logger hclog.Logger) (storage.Storage, error) {
	if cfg.MinIO.Endpoint != "" {
		return storage.NewMinIO(ctx, cfg.MinIO)
	}
	if cfg.Queue.Driver != "memory" {
		return nil, ErrMemoryStorageNeedsMemoryQueue
	}
	logger.Warn("MINIO_ENDPOINT not set, document content is kept in memory and lost on restart")
	return storage.NewMemory(), nil
}

// Scanner returns the VirusTotal client, or Skip when no API key is set.
func Scanner(cfg config.ScannerConfig, store storage.Storage, logger hclog.Logger) (scanner.Scanner, error) {
	if cfg.APIKey == "" {
		return scanner.NewSkip(logger), nil
	}
	return scanner.NewVirusTotal(cfg, store, logger)
}

// Processor wires the scan worker over the version repository in db.
func Processor(db *sql.DB, store storage.Storage, cfg *config.AppConfig, reg prometheus.Registerer, logger hclog.Logger) (*worker.Processor, error) {
	sc, err := Scanner(cfg.Scanner, store, logger)
	if err != nil {
		return nil, err
	}
	versions := service.NewVersionService(postgres.NewVersionPostgres(db), logger)
	return worker.NewProcessor(versions, store, sc, reg, logger)
}
