package dto

type CreateItemInput struct {
	SKU                string
	Barcode            string
	Name               string
	Category           string
	RetailPrice        int64
	WholesalePrice     int64
	WholesaleUnitLabel string
	CostPrice          int64
	Supplier           string
	ImageURL           string
	InitialQuantity    int64
}

// UpdateItemInput deliberately has no quantity field: on-hand quantity is
// only ever mutated through the inventory ledger.
type UpdateItemInput struct {
	ID                 string
	SKU                string
	Barcode            string
	Name               string
	Category           string
	RetailPrice        int64
	WholesalePrice     int64
	WholesaleUnitLabel string
	CostPrice          int64
	Supplier           string
	ImageURL           string
}

type CatalogFilters struct {
	Category      string
	Search        string
	IncludeHidden bool
	Page          int
	PageSize      int
}
