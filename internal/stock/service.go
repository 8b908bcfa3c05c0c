package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
)

// Ledger mutates the per-unit stock rows as order reconciliations move
// quantities around. Every method runs inside the caller's transaction.
type Ledger struct {
	repo Repository
}

// NewLedger builds a stock ledger service.
func NewLedger(repo Repository) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &Ledger{repo: repo}, nil
}

// ApplyDelta creates or removes stock units for an order item so the ledger
// matches the reconciled quantity. Positive deltas create units, consuming
// hint metadata first and padding with anonymous units. Negative deltas
// remove units, preferring rows that match a hint's batch/expiry, then the
// oldest remaining rows tied to the order item.
func (l *Ledger) ApplyDelta(ctx context.Context, tx *gorm.DB, productID, orderItemID uuid.UUID, delta int, hints []ItemHint) error {
	if delta == 0 {
		return nil
	}
	repo := l.repo.WithTx(tx)

	// Hints carrying an id belong to UpdateExisting, not the delta.
	fresh := make([]ItemHint, 0, len(hints))
	for _, hint := range hints {
		if hint.ID == nil {
			fresh = append(fresh, hint)
		}
	}

	if delta > 0 {
		items := make([]models.StockItem, 0, delta)
		for i := 0; i < delta; i++ {
			item := models.StockItem{
				ProductID:   productID,
				OrderItemID: &orderItemID,
			}
			if i < len(fresh) {
				item.BatchNumber = fresh[i].Batch
				item.ExpiryDate = fresh[i].Expiry
			}
			items = append(items, item)
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("creating %d stock items: %w", delta, err)
		}
		return nil
	}

	toRemove := -delta
	existing, err := repo.FindItemsByOrderItem(ctx, productID, orderItemID)
	if err != nil {
		return fmt.Errorf("loading stock items for order item %s: %w", orderItemID, err)
	}

	victims := pickRemovals(existing, fresh, toRemove)
	if err := repo.DeleteItems(ctx, victims); err != nil {
		return fmt.Errorf("removing %d stock items: %w", len(victims), err)
	}
	return nil
}

// pickRemovals selects up to limit item ids, hint matches first, then oldest
// rows in creation order.
func pickRemovals(existing []models.StockItem, hints []ItemHint, limit int) []uuid.UUID {
	victims := make([]uuid.UUID, 0, limit)
	taken := make(map[uuid.UUID]bool, limit)

	for _, hint := range hints {
		if len(victims) >= limit {
			break
		}
		for _, item := range existing {
			if taken[item.ID] {
				continue
			}
			if hint.matches(item.BatchNumber, item.ExpiryDate) {
				victims = append(victims, item.ID)
				taken[item.ID] = true
				break
			}
		}
	}

	for _, item := range existing {
		if len(victims) >= limit {
			break
		}
		if !taken[item.ID] {
			victims = append(victims, item.ID)
			taken[item.ID] = true
		}
	}
	return victims
}

// ReleaseOrderItem removes every ledger row an order item produced. Used
// when the order itself is deleted and its stock contribution is reverted.
func (l *Ledger) ReleaseOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error {
	if err := l.repo.WithTx(tx).DeleteItemsByOrderItem(ctx, orderItemID); err != nil {
		return fmt.Errorf("releasing stock items for order item %s: %w", orderItemID, err)
	}
	return nil
}

// UpdateExisting overwrites batch/expiry (and usage flags when provided) on
// the rows the hints identify by id.
func (l *Ledger) UpdateExisting(ctx context.Context, tx *gorm.DB, updates []ItemHint) error {
	repo := l.repo.WithTx(tx)

	for _, update := range updates {
		if update.ID == nil {
			continue
		}
		item, err := repo.FindItemByID(ctx, *update.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "stock item %s not found", *update.ID)
			}
			return fmt.Errorf("loading stock item %s: %w", *update.ID, err)
		}
		item.BatchNumber = update.Batch
		item.ExpiryDate = update.Expiry
		if update.InUse != nil {
			item.InUse = *update.InUse
		}
		if update.Opened != nil {
			item.OpenedAt = update.Opened
		}
		if err := repo.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("saving stock item %s: %w", item.ID, err)
		}
	}
	return nil
}
