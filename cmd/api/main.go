package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventcraft/notifications/internal/config"
	"github.com/eventcraft/notifications/internal/handler"
	"github.com/eventcraft/notifications/internal/infra/postgresql"
	"github.com/eventcraft/notifications/internal/infra/postgresql/migrations"
	infraredis "github.com/eventcraft/notifications/internal/infra/redis"
	"github.com/eventcraft/notifications/internal/observability"
	"github.com/eventcraft/notifications/internal/provider"
	"github.com/eventcraft/notifications/internal/repository"
	"github.com/eventcraft/notifications/internal/service"
	"github.com/eventcraft/notifications/internal/transport"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	lock, err := infraredis.NewRunLock(rdb, time.Duration(cfg.LockTTLSec)*time.Second)
	if err != nil {
		logger.Fatal("run lock initialization failed", zap.Error(err))
	}

	emailAdapter, err := provider.NewEmailAdapter(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.MailDomain,
	)
	if err != nil {
		logger.Fatal("email adapter initialization failed", zap.Error(err))
	}

	smsAdapter, err := provider.NewSMSAdapter(cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSFrom)
	if err != nil {
		logger.Fatal("sms adapter initialization failed", zap.Error(err))
	}

	notificationRepo := repository.NewGormNotificationRepo(db)
	userRepo := repository.NewGormUserRepo(db)
	eventRepo := repository.NewGormEventRepo(db)

	dispatch, err := service.NewDispatchService(
		notificationRepo,
		userRepo,
		eventRepo,
		[]provider.Adapter{provider.NewInAppAdapter(), emailAdapter, smsAdapter},
		limiter,
		time.Duration(cfg.SendTimeoutSec)*time.Second,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}

	dueScanner, err := service.NewDueScanner(dispatch, time.Duration(cfg.DueScanSec)*time.Second, logger)
	if err != nil {
		logger.Fatal("due scanner initialization failed", zap.Error(err))
	}

	reminders, err := service.NewReminderScheduler(
		eventRepo,
		userRepo,
		notificationRepo,
		dispatch,
		lock,
		cfg.DailyReminderHour,
		logger,
	)
	if err != nil {
		logger.Fatal("reminder scheduler initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatch.SetMetrics(metrics)
	dueScanner.SetMetrics(metrics)
	reminders.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterNotificationRoutes(app, dispatch); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dueScanner.Start(gctx) })
	g.Go(func() error { return reminders.Start(gctx) })
	g.Go(func() error {
		logger.Info("notification api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("stopped")
}
