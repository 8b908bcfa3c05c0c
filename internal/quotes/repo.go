package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a quotes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		return nil, err
	}
	return quote, nil
}

func (r *repository) CreateQuoteItems(ctx context.Context, items []models.QuoteItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindQuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Preload("Supplier.SecondaryEmails").
		Preload("Items.Product").
		Where("id = ?", id).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindQuoteItemByID(ctx context.Context, id uuid.UUID) (*models.QuoteItem, error) {
	var item models.QuoteItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) SaveQuote(ctx context.Context, quote *models.Quote) error {
	quote.LastUpdateDate = time.Now()
	return r.db.WithContext(ctx).Save(quote).Error
}

func (r *repository) SaveQuoteItem(ctx context.Context, item *models.QuoteItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status enums.QuoteStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           status,
			"last_update_date": time.Now(),
		}).Error
}

// ListOpenQuotes returns received quotes that no order has been reconciled
// against yet, oldest first.
func (r *repository) ListOpenQuotes(ctx context.Context) ([]models.Quote, error) {
	var rows []models.Quote
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Where("status = ?", enums.QuoteStatusReceived).
		Where("id NOT IN (?)", r.db.Model(&models.Order{}).Select("quote_id")).
		Order("creation_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
