package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// PushPrice records a newly observed price on a product while keeping the
// prior one recoverable. The current price moves to previous_price before it
// is overwritten, so a later revert can restore it.
func PushPrice(product *models.Product, price decimal.NullDecimal) {
	product.PreviousPrice = product.Price
	product.Price = price
}

// RevertPrice undoes the most recent PushPrice by restoring the price from
// previous_price. Only one level of history is kept; reverting twice is a
// no-op beyond the first restore.
func RevertPrice(product *models.Product) {
	product.Price = product.PreviousPrice
}

// SeedInventoryProduct builds the lab's inventory counterpart of a supplier
// catalog listing, copying the descriptive fields and starting with zero
// stock.
func SeedInventoryProduct(catalogProduct *models.Product) *models.Product {
	zero := 0
	return &models.Product{
		CatNum:          catalogProduct.CatNum,
		SupplierCatItem: false,
		Name:            catalogProduct.Name,
		Category:        catalogProduct.Category,
		Unit:            catalogProduct.Unit,
		Volume:          catalogProduct.Volume,
		Storage:         catalogProduct.Storage,
		Stock:           &zero,
		Price:           catalogProduct.Price,
		Currency:        catalogProduct.Currency,
		URL:             catalogProduct.URL,
		Location:        catalogProduct.Location,
		ManufacturerID:  catalogProduct.ManufacturerID,
		SupplierID:      catalogProduct.SupplierID,
	}
}
