package statistics

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Repository persists per-product order aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.ProductOrderStatistics, error)
	Create(ctx context.Context, stats *models.ProductOrderStatistics) (*models.ProductOrderStatistics, error)
	Save(ctx context.Context, stats *models.ProductOrderStatistics) error
	ListWithAnyAverage(ctx context.Context) ([]models.ProductOrderStatistics, error)
}
