package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/orgolab/labstock-backend/pkg/enums"
)

// Quote is a supplier price request covering one or more products.
type Quote struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID     uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null;index"`
	Status         enums.QuoteStatus `gorm:"column:status;type:text;not null;default:'REQUESTED'"`
	DocumentKey    *string           `gorm:"column:document_key"`
	RequestedBy    *string           `gorm:"column:requested_by"`
	EmailedTo      pq.StringArray    `gorm:"column:emailed_to;type:text[]"`
	CreationDate   time.Time         `gorm:"column:creation_date;not null"`
	LastUpdateDate time.Time         `gorm:"column:last_update_date;not null"`
	Supplier       *Supplier         `gorm:"foreignKey:SupplierID"`
	Items          []QuoteItem       `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// QuoteItem is one product line on a quote. Price stays unset until the
// supplier's quote document arrives.
type QuoteItem struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteID   uuid.UUID           `gorm:"column:quote_id;type:uuid;not null;index"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity  int                 `gorm:"column:quantity;not null"`
	Price     decimal.NullDecimal `gorm:"column:price;type:numeric(14,2)"`
	Product   *Product            `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
