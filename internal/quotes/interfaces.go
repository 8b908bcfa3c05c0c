package quotes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
)

// Repository persists quotes and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error)
	CreateQuoteItems(ctx context.Context, items []models.QuoteItem) error
	FindQuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	FindQuoteItemByID(ctx context.Context, id uuid.UUID) (*models.QuoteItem, error)
	SaveQuote(ctx context.Context, quote *models.Quote) error
	SaveQuoteItem(ctx context.Context, item *models.QuoteItem) error
	UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status enums.QuoteStatus) error
	ListOpenQuotes(ctx context.Context) ([]models.Quote, error)
}
