package cron

import (
	"context"
	"fmt"

	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/metrics"
)

type expiryNotificationRefresher interface {
	RefreshExpiryNotifications(ctx context.Context) (int, error)
}

type ExpiryNotificationJobParams struct {
	Logger        *logger.Logger
	Notifications expiryNotificationRefresher
	Metrics       *metrics.JobMetrics
}

// NewExpiryNotificationJob flags stock units approaching their expiry date.
func NewExpiryNotificationJob(params ExpiryNotificationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &expiryNotificationJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		metrics:       params.Metrics,
	}, nil
}

type expiryNotificationJob struct {
	logg          *logger.Logger
	notifications expiryNotificationRefresher
	metrics       *metrics.JobMetrics
}

func (j *expiryNotificationJob) Name() string { return "expiry-notification-refresh" }

func (j *expiryNotificationJob) Run(ctx context.Context) error {
	// Partial failures still flag the units that worked; the error carries
	// the rest.
	flagged, err := j.notifications.RefreshExpiryNotifications(ctx)
	j.metrics.AddRowsAffected(j.Name(), flagged)
	if err != nil {
		return fmt.Errorf("expiry notification refresh: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "units_flagged", flagged)
	j.logg.Info(logCtx, "expiry notification refresh complete")
	return nil
}
