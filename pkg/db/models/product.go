package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orgolab/labstock-backend/pkg/enums"
)

// Product is either a supplier's catalog listing (SupplierCatItem true) or
// the lab's stocked inventory counterpart (false). Both share a catalog
// number, so the pair is what identifies a row.
type Product struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CatNum          string                  `gorm:"column:cat_num;not null;uniqueIndex:idx_products_cat_num_supplier_cat_item"`
	SupplierCatItem bool                    `gorm:"column:supplier_cat_item;not null;default:false;uniqueIndex:idx_products_cat_num_supplier_cat_item"`
	Name            string                  `gorm:"column:name;not null"`
	Category        enums.ProductCategory   `gorm:"column:category;type:text;not null"`
	Unit            *enums.ProductUnit      `gorm:"column:unit;type:text"`
	Volume          decimal.NullDecimal     `gorm:"column:volume;type:numeric(14,4)"`
	Storage         *enums.StorageCondition `gorm:"column:storage;type:text"`
	Stock           *int                    `gorm:"column:stock"`
	Price           decimal.NullDecimal     `gorm:"column:price;type:numeric(14,2)"`
	Currency        *enums.Currency         `gorm:"column:currency;type:text"`
	PreviousPrice   decimal.NullDecimal     `gorm:"column:previous_price;type:numeric(14,2)"`
	URL             *string                 `gorm:"column:url"`
	Location        *string                 `gorm:"column:location"`
	Notes           *string                 `gorm:"column:notes"`
	ManufacturerID  *uuid.UUID              `gorm:"column:manufacturer_id;type:uuid;index"`
	SupplierID      *uuid.UUID              `gorm:"column:supplier_id;type:uuid;index"`
	Manufacturer    *Manufacturer           `gorm:"foreignKey:ManufacturerID"`
	Supplier        *Supplier               `gorm:"foreignKey:SupplierID"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// UniqueConstraintProductCatNum is the index name the Postgres schema uses,
// for mapping unique violations to conflict errors.
const UniqueConstraintProductCatNum = "idx_products_cat_num_supplier_cat_item"
