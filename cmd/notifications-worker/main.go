package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"time"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"

	"github.com/orgolab/labstock-backend/internal/notifications"
	"github.com/orgolab/labstock-backend/internal/statistics"
	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/pkg/config"
	"github.com/orgolab/labstock-backend/pkg/db"
	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/migrate"
	"github.com/orgolab/labstock-backend/pkg/pubsub"
)

// The notifications worker listens on the domain event stream and rebuilds
// the reorder notification table whenever a reconciliation changes what is in
// stock.
func main() {
	logg := logger.New(logger.Options{ServiceName: "notifications-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "notifications-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notifications-worker",
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

	pubsubClient, err := pubsub.NewClient(bootCtx, cfg.GCP, cfg.PubSub, true, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() { _ = pubsubClient.Close() }()

	statsRepo := statistics.NewRepository(dbClient.DB())
	stockRepo := stock.NewRepository(dbClient.DB())
	notifRepo := notifications.NewRepository(dbClient.DB())

	expiryWindow := time.Duration(cfg.Notifications.ExpiryLookaheadDays) * 24 * time.Hour
	notifSvc, err := notifications.NewService(notifRepo, statsRepo, stockRepo, dbClient, expiryWindow, logg)
	if err != nil {
		logg.Error(bootCtx, "failed to create notifications service", err)
		os.Exit(1)
	}

	subscriber := pubsubClient.DomainSubscription()
	if subscriber == nil {
		logg.Error(bootCtx, "domain subscription is not configured", errors.New("missing subscription"))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting notifications worker")

	err = subscriber.Receive(ctx, func(msgCtx context.Context, msg *pubsubv2.Message) {
		handleMessage(msgCtx, logg, notifSvc, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notifications worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notifications worker shutting down gracefully")
}

func handleMessage(ctx context.Context, logg *logger.Logger, svc *notifications.Service, msg *pubsubv2.Message) {
	var event pubsub.DomainEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logg.Error(ctx, "dropping malformed domain event", err)
		msg.Ack()
		return
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID.String(),
		"event_type": event.Type,
	})

	switch event.Type {
	case pubsub.EventOrderReconciled, pubsub.EventOrderDeleted:
		flagged, err := svc.RefreshOrderNotifications(ctx)
		if err != nil {
			logg.Error(ctx, "reorder notification refresh failed", err)
			msg.Nack()
			return
		}
		logg.Info(logg.WithField(ctx, "products_flagged", flagged), "reorder notifications refreshed")
	default:
		logg.Info(ctx, "ignoring domain event")
	}
	msg.Ack()
}
