package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Repository persists the derived notification tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrderNotifications(ctx context.Context, rows []models.OrderNotification) error
	DeleteAllOrderNotifications(ctx context.Context) error
	DeleteOrderNotificationByProduct(ctx context.Context, productID uuid.UUID) error
	ListOrderNotifications(ctx context.Context) ([]models.OrderNotification, error)
	CreateExpiryNotification(ctx context.Context, row *models.ExpiryNotification) error
	ListExpiryStockItemIDs(ctx context.Context) ([]uuid.UUID, error)
	DeleteExpiryNotificationByStockItem(ctx context.Context, stockItemID uuid.UUID) error
	ListExpiryNotifications(ctx context.Context) ([]models.ExpiryNotification, error)
}
