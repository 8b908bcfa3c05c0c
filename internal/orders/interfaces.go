package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Repository persists orders, their line items and receipt rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error)
	CreateReceipts(ctx context.Context, receipts []models.OrderReceipt) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	FindOrderItemByQuoteItem(ctx context.Context, orderID, quoteItemID uuid.UUID) (*models.OrderItem, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	SaveOrderItem(ctx context.Context, item *models.OrderItem) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	FindReceiptByObjectKey(ctx context.Context, objectKey string) (*models.OrderReceipt, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID) error
	ListOrders(ctx context.Context) ([]models.Order, error)
}
