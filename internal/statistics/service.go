package statistics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/internal/catalog"
	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Recorder maintains the running per-product order aggregates. It always
// operates inside the caller's reconciliation transaction.
type Recorder struct {
	repo     Repository
	products catalog.Repository
	clock    func() time.Time
}

// NewRecorder builds a statistics recorder.
func NewRecorder(repo Repository, products catalog.Repository) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("statistics repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Recorder{repo: repo, products: products, clock: time.Now}, nil
}

// WithClock overrides the time source. Used by tests.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// RecordOrder registers one reconciled order line against the product's
// aggregates and, when the line counts toward stock, adds the received
// quantity to the product's stock.
//
// The averages use a weighted running mean that re-weights the previous
// average by order_count-1. This is deliberately not a true cumulative mean:
// the stored average drifts toward recent observations, and the reorder
// notification thresholds are tuned to that behavior. The second order seeds
// the interval average with its own observation; the quantity average starts
// at zero.
func (r *Recorder) RecordOrder(ctx context.Context, tx *gorm.DB, product *models.Product, quantity int, countsTowardStock bool) error {
	repo := r.repo.WithTx(tx)

	stats, err := repo.FindByProductForUpdate(ctx, product.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("loading statistics for product %s: %w", product.ID, err)
		}
		stats = &models.ProductOrderStatistics{
			ProductID:        product.ID,
			AvgOrderQuantity: decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
		}
		if stats, err = repo.Create(ctx, stats); err != nil {
			return fmt.Errorf("creating statistics for product %s: %w", product.ID, err)
		}
	}

	now := r.clock()
	stats.OrderCount++
	n := stats.OrderCount

	if n > 1 && stats.LastOrderedAt != nil {
		interval := now.Sub(*stats.LastOrderedAt)

		priorTime := interval
		if n > 2 && stats.AvgOrderTimeNS != nil {
			priorTime = stats.AvgOrderTime()
		}
		stats.SetAvgOrderTime((priorTime*time.Duration(n-1) + interval) / time.Duration(n))

		qty := decimal.NewFromInt(int64(quantity))
		priorQty := qty
		if n > 2 && stats.AvgOrderQuantity.Valid {
			priorQty = stats.AvgOrderQuantity.Decimal
		}
		avgQty := priorQty.Mul(decimal.NewFromInt(int64(n - 1))).Add(qty).Div(decimal.NewFromInt(int64(n)))
		stats.AvgOrderQuantity = decimal.NullDecimal{Decimal: avgQty, Valid: true}
	}
	stats.LastOrderedAt = &now

	if countsTowardStock {
		current := 0
		if product.Stock != nil {
			current = *product.Stock
		}
		updated := current + quantity
		product.Stock = &updated
		if err := r.products.WithTx(tx).SaveProduct(ctx, product); err != nil {
			return fmt.Errorf("updating stock for product %s: %w", product.ID, err)
		}
	}

	if err := repo.Save(ctx, stats); err != nil {
		return fmt.Errorf("saving statistics for product %s: %w", product.ID, err)
	}
	return nil
}
