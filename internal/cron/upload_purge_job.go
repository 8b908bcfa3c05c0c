package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/metrics"
)

const defaultUploadMaxAge = 20 * time.Minute

type staleUploadPurger interface {
	PurgeStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type UploadPurgeJobParams struct {
	Logger  *logger.Logger
	Uploads staleUploadPurger
	Metrics *metrics.JobMetrics
	MaxAge  time.Duration
}

// NewUploadPurgeJob removes upload tracking rows whose client never finished
// the transfer, together with any half-uploaded objects.
func NewUploadPurgeJob(params UploadPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("uploads service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultUploadMaxAge
	}
	return &uploadPurgeJob{
		logg:    params.Logger,
		uploads: params.Uploads,
		metrics: params.Metrics,
		maxAge:  maxAge,
	}, nil
}

type uploadPurgeJob struct {
	logg    *logger.Logger
	uploads staleUploadPurger
	metrics *metrics.JobMetrics
	maxAge  time.Duration
}

func (j *uploadPurgeJob) Name() string { return "upload-purge" }

func (j *uploadPurgeJob) Run(ctx context.Context) error {
	purged, err := j.uploads.PurgeStale(ctx, j.maxAge)
	j.metrics.AddRowsAffected(j.Name(), purged)
	if err != nil {
		return fmt.Errorf("upload purge: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "uploads_purged", purged)
	j.logg.Info(logCtx, "upload purge complete")
	return nil
}
