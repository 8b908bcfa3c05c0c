package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type statsLister interface {
	ListWithAnyAverage(ctx context.Context) ([]models.ProductOrderStatistics, error)
}

type expiringStockLister interface {
	ListExpiringBy(ctx context.Context, cutoff time.Time) ([]models.StockItem, error)
}

// Service derives reorder and expiry notifications from the aggregates and
// the stock ledger. Both refreshes are meant to run on a schedule; the
// reorder refresh is also triggered by reconciliation events.
type Service struct {
	repo         Repository
	stats        statsLister
	stock        expiringStockLister
	tx           txRunner
	expiryWindow time.Duration
	logg         *logger.Logger
	clock        func() time.Time
}

// NewService builds the notification deriver. expiryWindow is how far ahead
// the expiry scan looks.
func NewService(repo Repository, stats statsLister, stockLister expiringStockLister, tx txRunner, expiryWindow time.Duration, logg *logger.Logger) (*Service, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("notifications repository required")
	case stats == nil:
		return nil, fmt.Errorf("statistics repository required")
	case stockLister == nil:
		return nil, fmt.Errorf("stock repository required")
	case tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case expiryWindow <= 0:
		return nil, fmt.Errorf("expiry window must be positive")
	}
	return &Service{
		repo:         repo,
		stats:        stats,
		stock:        stockLister,
		tx:           tx,
		expiryWindow: expiryWindow,
		logg:         logg,
		clock:        time.Now,
	}, nil
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// RefreshOrderNotifications rebuilds the reorder table from scratch: every
// existing row is dropped and a fresh row is written for each product whose
// aggregates say it is due. Running it twice in a row yields the same table.
func (s *Service) RefreshOrderNotifications(ctx context.Context) (int, error) {
	now := s.clock()

	rows, err := s.stats.ListWithAnyAverage(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing order statistics: %w", err)
	}

	due := make([]models.OrderNotification, 0, len(rows))
	for _, stats := range rows {
		if productDue(stats, now) {
			due = append(due, models.OrderNotification{ProductID: stats.ProductID})
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAllOrderNotifications(ctx); err != nil {
			return fmt.Errorf("clearing reorder notifications: %w", err)
		}
		if err := repo.CreateOrderNotifications(ctx, due); err != nil {
			return fmt.Errorf("writing %d reorder notifications: %w", len(due), err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

// productDue reports whether a product should be flagged for reordering:
// either more than the usual interval between its orders has elapsed, or the
// remaining stock is below half of a typical order. Products without a
// tracked stock level are never flagged on quantity.
func productDue(stats models.ProductOrderStatistics, now time.Time) bool {
	if stats.AvgOrderTimeNS != nil && stats.LastOrderedAt != nil {
		if now.Sub(*stats.LastOrderedAt) > stats.AvgOrderTime() {
			return true
		}
	}
	if stats.AvgOrderQuantity.Valid && stats.Product != nil && stats.Product.Stock != nil {
		half := stats.AvgOrderQuantity.Decimal.Div(decimal.NewFromInt(2))
		if half.GreaterThan(decimal.NewFromInt(int64(*stats.Product.Stock))) {
			return true
		}
	}
	return false
}

// RefreshExpiryNotifications flags stock units whose expiry date falls inside
// the lookahead window or already passed. Existing flags stay untouched; a
// failure on one unit does not stop the rest.
func (s *Service) RefreshExpiryNotifications(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(s.expiryWindow)

	items, err := s.stock.ListExpiringBy(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing expiring stock: %w", err)
	}

	flaggedIDs, err := s.repo.ListExpiryStockItemIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing flagged stock items: %w", err)
	}
	flagged := make(map[uuid.UUID]bool, len(flaggedIDs))
	for _, id := range flaggedIDs {
		flagged[id] = true
	}

	var (
		created int
		errs    error
	)
	for _, item := range items {
		if flagged[item.ID] {
			continue
		}
		row := &models.ExpiryNotification{StockItemID: item.ID}
		if err := s.repo.CreateExpiryNotification(ctx, row); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stock item %s: %w", item.ID, err))
			continue
		}
		created++
	}
	if errs != nil && s.logg != nil {
		s.logg.Warn(ctx, "some expiry notifications could not be created")
	}
	return created, errs
}

// DeleteOrderNotificationForProduct drops a product's reorder flag, typically
// because an order for it just arrived. Used inside reconciliation
// transactions.
func (s *Service) DeleteOrderNotificationForProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	return s.repo.WithTx(tx).DeleteOrderNotificationByProduct(ctx, productID)
}

// DismissExpiryNotification removes the flag on a stock unit.
func (s *Service) DismissExpiryNotification(ctx context.Context, stockItemID uuid.UUID) error {
	return s.repo.DeleteExpiryNotificationByStockItem(ctx, stockItemID)
}

// ListOrderNotifications returns the reorder flags with their products.
func (s *Service) ListOrderNotifications(ctx context.Context) ([]models.OrderNotification, error) {
	return s.repo.ListOrderNotifications(ctx)
}

// ListExpiryNotifications returns the expiry flags with their stock units.
func (s *Service) ListExpiryNotifications(ctx context.Context) ([]models.ExpiryNotification, error) {
	return s.repo.ListExpiryNotifications(ctx)
}
