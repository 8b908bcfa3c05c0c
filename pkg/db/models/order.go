package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orgolab/labstock-backend/pkg/enums"
)

// Order records the arrival of goods against a quote. Deleting an order
// cascades to its items and receipts; the inventory effects are reverted by
// the reconciliation service before the row is removed.
type Order struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteID      uuid.UUID      `gorm:"column:quote_id;type:uuid;not null;uniqueIndex:idx_orders_quote_id"`
	ArrivalDate  time.Time      `gorm:"column:arrival_date;not null"`
	ReceivedBy   *string        `gorm:"column:received_by"`
	Notes        *string        `gorm:"column:notes"`
	Quote        *Quote         `gorm:"foreignKey:QuoteID"`
	Items        []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Receipts     []OrderReceipt `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreationDate time.Time      `gorm:"column:creation_date;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is the received counterpart of a quote line.
type OrderItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	QuoteItemID uuid.UUID             `gorm:"column:quote_item_id;type:uuid;not null;uniqueIndex:idx_order_items_quote_item_id"`
	ProductID   uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	Status      enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'OK'"`
	IssueDetail *string               `gorm:"column:issue_detail"`
	BatchNumber *string               `gorm:"column:batch_number"`
	ExpiryDate  *time.Time            `gorm:"column:expiry_date;type:date"`
	QuoteItem   *QuoteItem            `gorm:"foreignKey:QuoteItemID"`
	Product     *Product              `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderReceipt is a scanned delivery document attached to an order.
type OrderReceipt struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ObjectKey string    `gorm:"column:object_key;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
