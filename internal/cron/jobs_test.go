package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubOrderRefresher struct {
	flagged int
	err     error
	calls   int
}

func (s *stubOrderRefresher) RefreshOrderNotifications(ctx context.Context) (int, error) {
	s.calls++
	return s.flagged, s.err
}

type stubExpiryRefresher struct {
	flagged int
	err     error
}

func (s *stubExpiryRefresher) RefreshExpiryNotifications(ctx context.Context) (int, error) {
	return s.flagged, s.err
}

type stubPurger struct {
	purged int
	maxAge time.Duration
	err    error
}

func (s *stubPurger) PurgeStale(ctx context.Context, olderThan time.Duration) (int, error) {
	s.maxAge = olderThan
	return s.purged, s.err
}

func TestOrderNotificationJob(t *testing.T) {
	refresher := &stubOrderRefresher{flagged: 3}
	job, err := NewOrderNotificationJob(OrderNotificationJobParams{
		Logger:        testLogger(),
		Notifications: refresher,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "order-notification-refresh" {
		t.Fatalf("unexpected name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.calls)
	}

	refresher.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected refresh error surfaced")
	}
}

func TestExpiryNotificationJobSurfacesPartialFailure(t *testing.T) {
	refresher := &stubExpiryRefresher{flagged: 2, err: errors.New("one unit failed")}
	job, err := NewExpiryNotificationJob(ExpiryNotificationJobParams{
		Logger:        testLogger(),
		Notifications: refresher,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "expiry-notification-refresh" {
		t.Fatalf("unexpected name %s", job.Name())
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected partial failure surfaced")
	}
}

func TestUploadPurgeJobUsesConfiguredMaxAge(t *testing.T) {
	purger := &stubPurger{purged: 4}
	job, err := NewUploadPurgeJob(UploadPurgeJobParams{
		Logger:  testLogger(),
		Uploads: purger,
		MaxAge:  45 * time.Minute,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if purger.maxAge != 45*time.Minute {
		t.Fatalf("expected 45m max age, got %s", purger.maxAge)
	}
}

func TestUploadPurgeJobDefaultMaxAge(t *testing.T) {
	purger := &stubPurger{}
	job, err := NewUploadPurgeJob(UploadPurgeJobParams{
		Logger:  testLogger(),
		Uploads: purger,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if purger.maxAge != defaultUploadMaxAge {
		t.Fatalf("expected default max age, got %s", purger.maxAge)
	}
}
