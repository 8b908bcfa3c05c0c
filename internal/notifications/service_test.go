package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

type stubNotifRepo struct {
	orderRows     []models.OrderNotification
	clears        int
	expiryRows    []models.ExpiryNotification
	flaggedIDs    []uuid.UUID
	dismissed     []uuid.UUID
	expiryFailFor map[uuid.UUID]error
}

func (s *stubNotifRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubNotifRepo) CreateOrderNotifications(ctx context.Context, rows []models.OrderNotification) error {
	s.orderRows = append(s.orderRows, rows...)
	return nil
}

func (s *stubNotifRepo) DeleteAllOrderNotifications(ctx context.Context) error {
	s.clears++
	s.orderRows = nil
	return nil
}

func (s *stubNotifRepo) DeleteOrderNotificationByProduct(ctx context.Context, productID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubNotifRepo) ListOrderNotifications(ctx context.Context) ([]models.OrderNotification, error) {
	return s.orderRows, nil
}

func (s *stubNotifRepo) CreateExpiryNotification(ctx context.Context, row *models.ExpiryNotification) error {
	if err, ok := s.expiryFailFor[row.StockItemID]; ok {
		return err
	}
	s.expiryRows = append(s.expiryRows, *row)
	return nil
}

func (s *stubNotifRepo) ListExpiryStockItemIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.flaggedIDs, nil
}

func (s *stubNotifRepo) DeleteExpiryNotificationByStockItem(ctx context.Context, stockItemID uuid.UUID) error {
	s.dismissed = append(s.dismissed, stockItemID)
	return nil
}

func (s *stubNotifRepo) ListExpiryNotifications(ctx context.Context) ([]models.ExpiryNotification, error) {
	return s.expiryRows, nil
}

type stubStatsLister struct {
	rows []models.ProductOrderStatistics
}

func (s *stubStatsLister) ListWithAnyAverage(ctx context.Context) ([]models.ProductOrderStatistics, error) {
	return s.rows, nil
}

type stubStockLister struct {
	items  []models.StockItem
	cutoff time.Time
}

func (s *stubStockLister) ListExpiringBy(ctx context.Context, cutoff time.Time) ([]models.StockItem, error) {
	s.cutoff = cutoff
	return s.items, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubNotifRepo, stats *stubStatsLister, stockLister *stubStockLister, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(repo, stats, stockLister, stubTxRunner{}, 14*24*time.Hour, logger.New(logger.Options{ServiceName: "notifications-test"}))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc.WithClock(func() time.Time { return now })
}

func statsRow(productID uuid.UUID, avgInterval time.Duration, lastOrdered time.Time, avgQty int64, stockLevel int) models.ProductOrderStatistics {
	ns := int64(avgInterval)
	return models.ProductOrderStatistics{
		ProductID:        productID,
		AvgOrderTimeNS:   &ns,
		AvgOrderQuantity: decimal.NullDecimal{Decimal: decimal.NewFromInt(avgQty), Valid: true},
		LastOrderedAt:    &lastOrdered,
		Product:          &models.Product{ID: productID, Stock: &stockLevel},
	}
}

func TestRefreshOrderNotificationsFlagsDueProducts(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	dueByTime := uuid.New()
	dueByQuantity := uuid.New()
	notDue := uuid.New()

	stats := &stubStatsLister{rows: []models.ProductOrderStatistics{
		// Six days since the last order against a five-day rhythm.
		statsRow(dueByTime, 5*24*time.Hour, now.Add(-6*24*time.Hour), 2, 10),
		// Stock 3 against a typical order of 10: below half.
		statsRow(dueByQuantity, 30*24*time.Hour, now.Add(-1*24*time.Hour), 10, 3),
		// Recently ordered, plenty in stock.
		statsRow(notDue, 30*24*time.Hour, now.Add(-1*24*time.Hour), 4, 10),
	}}
	repo := &stubNotifRepo{orderRows: []models.OrderNotification{{ProductID: uuid.New()}}}
	svc := newTestService(t, repo, stats, &stubStockLister{}, now)

	flagged, err := svc.RefreshOrderNotifications(context.Background())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if flagged != 2 {
		t.Fatalf("expected 2 flagged products, got %d", flagged)
	}
	if repo.clears != 1 {
		t.Fatalf("expected stale rows cleared once, got %d", repo.clears)
	}
	got := map[uuid.UUID]bool{}
	for _, row := range repo.orderRows {
		got[row.ProductID] = true
	}
	if !got[dueByTime] || !got[dueByQuantity] || got[notDue] {
		t.Fatalf("unexpected flagged set %v", got)
	}
}

func TestRefreshOrderNotificationsIsIdempotent(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	productID := uuid.New()
	stats := &stubStatsLister{rows: []models.ProductOrderStatistics{
		statsRow(productID, 24*time.Hour, now.Add(-48*time.Hour), 2, 10),
	}}
	repo := &stubNotifRepo{}
	svc := newTestService(t, repo, stats, &stubStockLister{}, now)

	for i := 0; i < 2; i++ {
		flagged, err := svc.RefreshOrderNotifications(context.Background())
		if err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
		if flagged != 1 {
			t.Fatalf("refresh %d: expected 1 flag, got %d", i, flagged)
		}
		if len(repo.orderRows) != 1 {
			t.Fatalf("refresh %d: expected 1 row, got %d", i, len(repo.orderRows))
		}
	}
}

func TestProductDueExactIntervalBoundary(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	atBoundary := statsRow(uuid.New(), 5*24*time.Hour, now.Add(-5*24*time.Hour), 1, 100)
	if productDue(atBoundary, now) {
		t.Fatal("elapsed interval equal to the average must not flag the product")
	}

	pastBoundary := statsRow(uuid.New(), 5*24*time.Hour, now.Add(-5*24*time.Hour-time.Second), 1, 100)
	if !productDue(pastBoundary, now) {
		t.Fatal("elapsed interval past the average must flag the product")
	}
}

func TestProductDueSkipsUntrackedStock(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	row := statsRow(uuid.New(), 30*24*time.Hour, now.Add(-1*24*time.Hour), 10, 0)
	row.Product.Stock = nil
	if productDue(row, now) {
		t.Fatal("product without a tracked stock level must not be flagged on quantity")
	}
}

func TestProductDueWithoutAggregates(t *testing.T) {
	now := time.Now()
	stockLevel := 10
	row := models.ProductOrderStatistics{
		ProductID: uuid.New(),
		Product:   &models.Product{Stock: &stockLevel},
	}
	if productDue(row, now) {
		t.Fatal("product without averages must not be flagged")
	}
}

func TestRefreshExpiryNotifications(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	alreadyFlagged := models.StockItem{ID: uuid.New()}
	opened := models.StockItem{ID: uuid.New(), InUse: true}
	fresh := models.StockItem{ID: uuid.New()}

	repo := &stubNotifRepo{flaggedIDs: []uuid.UUID{alreadyFlagged.ID}}
	stockLister := &stubStockLister{items: []models.StockItem{alreadyFlagged, opened, fresh}}
	svc := newTestService(t, repo, &stubStatsLister{}, stockLister, now)

	created, err := svc.RefreshExpiryNotifications(context.Background())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	// A unit already in use still expires; only the existing flag is skipped.
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}
	got := map[uuid.UUID]bool{}
	for _, row := range repo.expiryRows {
		got[row.StockItemID] = true
	}
	if !got[opened.ID] || !got[fresh.ID] || got[alreadyFlagged.ID] {
		t.Fatalf("unexpected rows %+v", repo.expiryRows)
	}
	if want := now.Add(14 * 24 * time.Hour); !stockLister.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, stockLister.cutoff)
	}
}

func TestRefreshExpiryNotificationsPartialFailure(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

	failing := models.StockItem{ID: uuid.New()}
	working := models.StockItem{ID: uuid.New()}

	repo := &stubNotifRepo{expiryFailFor: map[uuid.UUID]error{failing.ID: gorm.ErrInvalidData}}
	stockLister := &stubStockLister{items: []models.StockItem{failing, working}}
	svc := newTestService(t, repo, &stubStatsLister{}, stockLister, now)

	created, err := svc.RefreshExpiryNotifications(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	// One unit failing does not stop the other.
	if created != 1 {
		t.Fatalf("expected 1 created despite failure, got %d", created)
	}
}

func TestDismissExpiryNotification(t *testing.T) {
	repo := &stubNotifRepo{}
	svc := newTestService(t, repo, &stubStatsLister{}, &stubStockLister{}, time.Now())

	stockItemID := uuid.New()
	if err := svc.DismissExpiryNotification(context.Background(), stockItemID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.dismissed) != 1 || repo.dismissed[0] != stockItemID {
		t.Fatalf("unexpected dismissals %v", repo.dismissed)
	}
}
