package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/orgolab/labstock-backend/api/controllers"
	"github.com/orgolab/labstock-backend/api/routes"
	"github.com/orgolab/labstock-backend/internal/catalog"
	"github.com/orgolab/labstock-backend/internal/notifications"
	"github.com/orgolab/labstock-backend/internal/orders"
	"github.com/orgolab/labstock-backend/internal/quotes"
	"github.com/orgolab/labstock-backend/internal/statistics"
	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/internal/uploads"
	"github.com/orgolab/labstock-backend/pkg/config"
	"github.com/orgolab/labstock-backend/pkg/db"
	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/mailer"
	"github.com/orgolab/labstock-backend/pkg/migrate"
	"github.com/orgolab/labstock-backend/pkg/pubsub"
	"github.com/orgolab/labstock-backend/pkg/redis"
	"github.com/orgolab/labstock-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	var emitter *pubsub.Emitter
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, false, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() { _ = pubsubClient.Close() }()
		emitter = pubsub.NewEmitter(pubsubClient)
	} else {
		logg.Warn(ctx, "no gcp project configured, domain events disabled")
	}

	mailClient := mailer.New(cfg.Email, logg)
	if mailClient == nil {
		logg.Warn(ctx, "no email api key configured, quote request emails disabled")
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	quotesRepo := quotes.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	stockRepo := stock.NewRepository(dbClient.DB())
	statsRepo := statistics.NewRepository(dbClient.DB())
	notifRepo := notifications.NewRepository(dbClient.DB())
	uploadsRepo := uploads.NewRepository(dbClient.DB())

	uploadsSvc, err := uploads.NewService(uploadsRepo, dbClient, gcsClient, ordersRepo, quotesRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create uploads service", err)
		os.Exit(1)
	}

	quotesSvc, err := quotes.NewService(quotesRepo, catalogRepo, dbClient, mailClient, gcsClient, uploadsSvc, redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create quotes service", err)
		os.Exit(1)
	}

	recorder, err := statistics.NewRecorder(statsRepo, catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create statistics recorder", err)
		os.Exit(1)
	}

	ledger, err := stock.NewLedger(stockRepo)
	if err != nil {
		logg.Error(ctx, "failed to create stock ledger", err)
		os.Exit(1)
	}

	expiryWindow := time.Duration(cfg.Notifications.ExpiryLookaheadDays) * 24 * time.Hour
	notifSvc, err := notifications.NewService(notifRepo, statsRepo, stockRepo, dbClient, expiryWindow, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.Deps{
		Repo:          ordersRepo,
		Quotes:        quotesRepo,
		Catalog:       catalogRepo,
		Stats:         recorder,
		Ledger:        ledger,
		Notifications: notifSvc,
		Uploads:       uploadsSvc,
		Signer:        gcsClient,
		Storage:       gcsClient,
		Tx:            dbClient,
		Events:        emitter,
		Cache:         redisClient,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Quotes:        quotesSvc,
			Orders:        ordersSvc,
			Notifications: notifSvc,
			Uploads:       uploadsSvc,
			Pingers: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
				"gcs":   gcsClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
