package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notifications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrderNotifications(ctx context.Context, rows []models.OrderNotification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) DeleteAllOrderNotifications(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.OrderNotification{}).Error
}

func (r *repository) DeleteOrderNotificationByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.OrderNotification{}).Error
}

func (r *repository) ListOrderNotifications(ctx context.Context) ([]models.OrderNotification, error) {
	var rows []models.OrderNotification
	err := r.db.WithContext(ctx).
		Preload("Product").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateExpiryNotification(ctx context.Context, row *models.ExpiryNotification) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListExpiryStockItemIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ExpiryNotification{}).
		Pluck("stock_item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) DeleteExpiryNotificationByStockItem(ctx context.Context, stockItemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("stock_item_id = ?", stockItemID).
		Delete(&models.ExpiryNotification{}).Error
}

func (r *repository) ListExpiryNotifications(ctx context.Context) ([]models.ExpiryNotification, error) {
	var rows []models.ExpiryNotification
	err := r.db.WithContext(ctx).
		Preload("StockItem.Product").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
