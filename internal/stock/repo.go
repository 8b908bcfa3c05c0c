package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateItems(ctx context.Context, items []models.StockItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	var item models.StockItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemsByOrderItem(ctx context.Context, productID, orderItemID uuid.UUID) ([]models.StockItem, error) {
	var items []models.StockItem
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND order_item_id = ?", productID, orderItemID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.StockItem{}).Error
}

func (r *repository) DeleteItemsByOrderItem(ctx context.Context, orderItemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Delete(&models.StockItem{}).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.StockItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// ListExpiringBy returns every unit whose expiry is set and falls on or
// before the cutoff, already-expired units included.
func (r *repository) ListExpiringBy(ctx context.Context, cutoff time.Time) ([]models.StockItem, error) {
	var items []models.StockItem
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", cutoff).
		Order("expiry_date ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
