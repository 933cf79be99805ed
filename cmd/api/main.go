package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/hashicorp/go-hclog"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"docvault/docs"
	"docvault/internal/bootstrap"
	"docvault/internal/cache"
	"docvault/internal/config"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logging"
	"docvault/internal/model"
	"docvault/internal/otel"
	"docvault/internal/queue"
	"docvault/internal/queue/kafka"
	"docvault/internal/queue/memory"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
)

// @title DocVault API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logger := logging.New("docvault-api", cfg.Log, nil)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger hclog.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "docvault-api", logger)
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

	// QUEUE_DRIVER=memory runs the scan worker inside this process.
	var q queue.Queue
	switch cfg.Queue.Driver {
	case "memory":
		proc, err := bootstrap.Processor(db, store, cfg, reg, logger)
		if err != nil {
			return err
		}
		mq := memory.New(memory.Options{
			Policy:  queue.PolicyFromConfig(cfg.Queue),
			Workers: cfg.Queue.Workers,
			Logger:  logger,
		})
		go func() {
			if err := mq.Consume(ctx, proc.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("in-process scan worker stopped", "error", err)
			}
		}()
		q = mq
	case "kafka":
		producer, err := kafka.NewProducer(cfg.Queue, logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		q = producer
	default:
		return errors.New("unknown QUEUE_DRIVER " + cfg.Queue.Driver)
	}

	users := postgres.NewUserPostgres(db)
	docRepo := postgres.NewDocumentPostgres(db)
	audit := postgres.NewAuditPostgres(db)
	paginator := service.NewPaginator(cfg.Pagination)

	notifications := service.NewNotificationService(postgres.NewNotificationPostgres(db), users, paginator, logger)
	docSvc := service.NewDocumentService(service.DocumentDeps{
		Store:     store,
		Documents: docRepo,
		Versions:  postgres.NewVersionPostgres(db),
		Audit:     audit,
		Queue:     q,
		Notifier:  notifications,
		Logger:    logger,
	}, service.DocumentOptions{
		AllowedContentTypes: cfg.Upload.AllowedContentTypes,
		Paginator:           paginator,
	})
	teamSvc := service.NewTeamService(users, notifications, logger)
	statsSvc := service.NewStatsService(users, docRepo, audit,
		cache.NewTTL[*model.DashboardStats](cfg.StatsCacheTTL, nil), logger)
	profileSvc := service.NewProfileService(users, logger)

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(logger),
		BodyLimit:             int(cfg.Upload.MaxSize),
		ProxyHeader:           cfg.Network.ProxyHeader,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.IPAllowlist(cfg.Network, logger, "/health", "/healthz"))

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:            db,
		Documents:     docSvc,
		Teams:         teamSvc,
		Notifications: notifications,
		Stats:         statsSvc,
		Profiles:      profileSvc,
		Gatherer:      reg,
		Auth:          middleware.Authenticate([]byte(cfg.JWTSecret), users, logger),
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ":"+cfg.Port, "queue_driver", cfg.Queue.Driver)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
