package statistics

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a statistics repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByProductForUpdate locks the row for the duration of the surrounding
// transaction so concurrent reconciliations of the same product serialize on
// the read-modify-write.
func (r *repository) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.ProductOrderStatistics, error) {
	var stats models.ProductOrderStatistics
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repository) Create(ctx context.Context, stats *models.ProductOrderStatistics) (*models.ProductOrderStatistics, error) {
	if err := r.db.WithContext(ctx).Create(stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repository) Save(ctx context.Context, stats *models.ProductOrderStatistics) error {
	return r.db.WithContext(ctx).Save(stats).Error
}

// ListWithAnyAverage returns every row whose interval or quantity average has
// been computed at least once, preloading the owning product.
func (r *repository) ListWithAnyAverage(ctx context.Context) ([]models.ProductOrderStatistics, error) {
	var rows []models.ProductOrderStatistics
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("avg_order_time_ns IS NOT NULL OR avg_order_quantity IS NOT NULL").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
