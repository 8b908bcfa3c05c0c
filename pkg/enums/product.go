package enums

import "fmt"

// ProductCategory groups catalog items by lab discipline.
type ProductCategory string

const (
	ProductCategoryMedium       ProductCategory = "Medium"
	ProductCategoryPowders      ProductCategory = "Powders"
	ProductCategoryEnzymes      ProductCategory = "Enzymes"
	ProductCategoryPlastics     ProductCategory = "Plastics"
	ProductCategoryGlassware    ProductCategory = "Glassware"
	ProductCategorySanitary     ProductCategory = "Sanitary"
	ProductCategoryLabEquipment ProductCategory = "Lab Equipment"
)

var validProductCategories = []ProductCategory{
	ProductCategoryMedium,
	ProductCategoryPowders,
	ProductCategoryEnzymes,
	ProductCategoryPlastics,
	ProductCategoryGlassware,
	ProductCategorySanitary,
	ProductCategoryLabEquipment,
}

func (p ProductCategory) String() string { return string(p) }

// IsValid reports whether the category is known.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductUnit is the measurement unit a product is sold in.
type ProductUnit string

const (
	ProductUnitML      ProductUnit = "ML"
	ProductUnitG       ProductUnit = "G"
	ProductUnitMG      ProductUnit = "MG"
	ProductUnitUG      ProductUnit = "UG"
	ProductUnitPackage ProductUnit = "Package"
	ProductUnitBox     ProductUnit = "Box"
)

var validProductUnits = []ProductUnit{
	ProductUnitML,
	ProductUnitG,
	ProductUnitMG,
	ProductUnitUG,
	ProductUnitPackage,
	ProductUnitBox,
}

func (p ProductUnit) String() string { return string(p) }

// IsValid reports whether the unit is known.
func (p ProductUnit) IsValid() bool {
	for _, candidate := range validProductUnits {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductUnit converts raw input into a ProductUnit.
func ParseProductUnit(value string) (ProductUnit, error) {
	for _, candidate := range validProductUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product unit %q", value)
}

// StorageCondition is the temperature band a product must be kept at.
type StorageCondition string

const (
	StoragePlus4   StorageCondition = "+4"
	StorageMinus20 StorageCondition = "-20"
	StorageMinus40 StorageCondition = "-40"
	StorageMinus80 StorageCondition = "-80"
	StorageOther   StorageCondition = "Other"
)

var validStorageConditions = []StorageCondition{
	StoragePlus4,
	StorageMinus20,
	StorageMinus40,
	StorageMinus80,
	StorageOther,
}

func (s StorageCondition) String() string { return string(s) }

// IsValid reports whether the storage condition is known.
func (s StorageCondition) IsValid() bool {
	for _, candidate := range validStorageConditions {
		if candidate == s {
			return true
		}
	}
	return false
}

// Currency is the currency a product price is denominated in.
type Currency string

const (
	CurrencyNIS Currency = "NIS"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var validCurrencies = []Currency{CurrencyNIS, CurrencyUSD, CurrencyEUR}

func (c Currency) String() string { return string(c) }

// IsValid reports whether the currency is known.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}
