package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orgolab/labstock-backend/internal/cron"
	"github.com/orgolab/labstock-backend/internal/notifications"
	"github.com/orgolab/labstock-backend/internal/orders"
	"github.com/orgolab/labstock-backend/internal/quotes"
	"github.com/orgolab/labstock-backend/internal/statistics"
	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/internal/uploads"
	"github.com/orgolab/labstock-backend/pkg/config"
	"github.com/orgolab/labstock-backend/pkg/db"
	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/metrics"
	"github.com/orgolab/labstock-backend/pkg/migrate"
	"github.com/orgolab/labstock-backend/pkg/redis"
	"github.com/orgolab/labstock-backend/pkg/storage/gcs"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		logg.Error(bootCtx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis)
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(bootCtx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	statsRepo := statistics.NewRepository(dbClient.DB())
	stockRepo := stock.NewRepository(dbClient.DB())
	notifRepo := notifications.NewRepository(dbClient.DB())
	uploadsRepo := uploads.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	quotesRepo := quotes.NewRepository(dbClient.DB())

	expiryWindow := time.Duration(cfg.Notifications.ExpiryLookaheadDays) * 24 * time.Hour
	notifSvc, err := notifications.NewService(notifRepo, statsRepo, stockRepo, dbClient, expiryWindow, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create notifications service", err)
		os.Exit(1)
	}

	uploadsSvc, err := uploads.NewService(uploadsRepo, dbClient, gcsClient, ordersRepo, quotesRepo, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create uploads service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	orderJob, err := cron.NewOrderNotificationJob(cron.OrderNotificationJobParams{
		Logger:        logg,
		Notifications: notifSvc,
		Metrics:       jobMetrics,
	})
	if err != nil {
		logg.Error(bootCtx, "failed to create order notification job", err)
		os.Exit(1)
	}
	expiryJob, err := cron.NewExpiryNotificationJob(cron.ExpiryNotificationJobParams{
		Logger:        logg,
		Notifications: notifSvc,
		Metrics:       jobMetrics,
	})
	if err != nil {
		logg.Error(bootCtx, "failed to create expiry notification job", err)
		os.Exit(1)
	}
	purgeJob, err := cron.NewUploadPurgeJob(cron.UploadPurgeJobParams{
		Logger:  logg,
		Uploads: uploadsSvc,
		Metrics: jobMetrics,
		MaxAge:  cfg.Uploads.StaleAfter,
	})
	if err != nil {
		logg.Error(bootCtx, "failed to create upload purge job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(bootCtx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(orderJob, expiryJob, purgeJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(bootCtx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
