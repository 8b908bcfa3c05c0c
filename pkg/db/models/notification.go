package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderNotification flags a product whose running aggregates say it is due
// for reordering. Rows are derived state; the refresh job owns the table.
type OrderNotification struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_order_notifications_product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ExpiryNotification flags a stock unit that expires inside the lookahead
// window. Rows accumulate; acting on a unit removes its row.
type ExpiryNotification struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockItemID uuid.UUID  `gorm:"column:stock_item_id;type:uuid;not null;uniqueIndex:idx_expiry_notifications_stock_item_id"`
	StockItem   *StockItem `gorm:"foreignKey:StockItemID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
