package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Repository persists the per-unit stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateItems(ctx context.Context, items []models.StockItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	FindItemsByOrderItem(ctx context.Context, productID, orderItemID uuid.UUID) ([]models.StockItem, error)
	DeleteItems(ctx context.Context, ids []uuid.UUID) error
	DeleteItemsByOrderItem(ctx context.Context, orderItemID uuid.UUID) error
	SaveItem(ctx context.Context, item *models.StockItem) error
	ListExpiringBy(ctx context.Context, cutoff time.Time) ([]models.StockItem, error)
}
