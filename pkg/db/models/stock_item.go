package models

import (
	"time"

	"github.com/google/uuid"
)

// StockItem is one physical unit of a product on the shelf. Units are created
// when an order line arrives in countable condition and trimmed oldest-first
// when a reconciliation reduces the received quantity.
type StockItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	OrderItemID *uuid.UUID `gorm:"column:order_item_id;type:uuid;index"`
	BatchNumber *string    `gorm:"column:batch_number"`
	ExpiryDate  *time.Time `gorm:"column:expiry_date;type:date"`
	InUse       bool       `gorm:"column:in_use;not null;default:false"`
	OpenedAt    *time.Time `gorm:"column:opened_at"`
	Product     *Product   `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
