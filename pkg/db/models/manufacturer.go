package models

import (
	"time"

	"github.com/google/uuid"
)

// Manufacturer produces catalog products; one manufacturer may be carried by
// several suppliers.
type Manufacturer struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;not null;uniqueIndex:idx_manufacturers_name"`
	Website   *string    `gorm:"column:website"`
	Suppliers []Supplier `gorm:"many2many:manufacturer_suppliers;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
