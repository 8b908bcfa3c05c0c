package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Repository is the catalog store: suppliers, manufacturers and both kinds of
// product rows (supplier catalog listings and lab inventory counterparts).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindInventoryProduct(ctx context.Context, catNum string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error
	FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}
