package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductOrderStatistics carries per-product running order aggregates.
// AvgOrderTime is stored as nanoseconds to keep the running-average math in
// one integer column.
type ProductOrderStatistics struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID           `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_order_statistics_product_id"`
	OrderCount       int                 `gorm:"column:order_count;not null;default:0"`
	AvgOrderTimeNS   *int64              `gorm:"column:avg_order_time_ns"`
	AvgOrderQuantity decimal.NullDecimal `gorm:"column:avg_order_quantity;type:numeric(14,4)"`
	LastOrderedAt    *time.Time          `gorm:"column:last_ordered_at"`
	Product          *Product            `gorm:"foreignKey:ProductID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// AvgOrderTime returns the running average interval between orders, or zero
// when fewer than two orders have been recorded.
func (s ProductOrderStatistics) AvgOrderTime() time.Duration {
	if s.AvgOrderTimeNS == nil {
		return 0
	}
	return time.Duration(*s.AvgOrderTimeNS)
}

// SetAvgOrderTime stores the interval as nanoseconds.
func (s *ProductOrderStatistics) SetAvgOrderTime(d time.Duration) {
	ns := int64(d)
	s.AvgOrderTimeNS = &ns
}
