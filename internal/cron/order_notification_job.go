package cron

import (
	"context"
	"fmt"

	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/metrics"
)

type orderNotificationRefresher interface {
	RefreshOrderNotifications(ctx context.Context) (int, error)
}

type OrderNotificationJobParams struct {
	Logger        *logger.Logger
	Notifications orderNotificationRefresher
	Metrics       *metrics.JobMetrics
}

// NewOrderNotificationJob rebuilds the reorder notification table on each
// cycle.
func NewOrderNotificationJob(params OrderNotificationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &orderNotificationJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		metrics:       params.Metrics,
	}, nil
}

type orderNotificationJob struct {
	logg          *logger.Logger
	notifications orderNotificationRefresher
	metrics       *metrics.JobMetrics
}

func (j *orderNotificationJob) Name() string { return "order-notification-refresh" }

func (j *orderNotificationJob) Run(ctx context.Context) error {
	flagged, err := j.notifications.RefreshOrderNotifications(ctx)
	if err != nil {
		return fmt.Errorf("order notification refresh: %w", err)
	}
	j.metrics.AddRowsAffected(j.Name(), flagged)
	logCtx := j.logg.WithField(ctx, "products_flagged", flagged)
	j.logg.Info(logCtx, "order notification refresh complete")
	return nil
}
