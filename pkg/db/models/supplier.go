package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a vendor the lab orders from.
type Supplier struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string                   `gorm:"column:name;not null;uniqueIndex:idx_suppliers_name"`
	Website         *string                  `gorm:"column:website"`
	Email           *string                  `gorm:"column:email"`
	Phone           *string                  `gorm:"column:phone"`
	OfficePhone     *string                  `gorm:"column:office_phone"`
	ContactName     *string                  `gorm:"column:contact_name"`
	Notes           *string                  `gorm:"column:notes"`
	SecondaryEmails []SupplierSecondaryEmail `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// SupplierSecondaryEmail is an additional quote-request recipient for a supplier.
type SupplierSecondaryEmail struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID uuid.UUID `gorm:"column:supplier_id;type:uuid;not null;index"`
	Email      string    `gorm:"column:email;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
