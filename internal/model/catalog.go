package model

import "time"

// CatalogItem is the closed record behind every cart line and import row.
// QuantityOnHand is never written directly: all mutations go through the
// inventory ledger so the quantity can never be driven negative.
type CatalogItem struct {
	BaseModel
	SKU                string  `db:"sku" json:"sku"`
	Barcode            *string `db:"barcode" json:"barcode"` // Nullable
	Name               string  `db:"name" json:"name"`
	Category           string  `db:"category" json:"category"`
	RetailPrice        int64   `db:"retail_price" json:"retail_price"`
	WholesalePrice     int64   `db:"wholesale_price" json:"wholesale_price"`
	WholesaleUnitLabel string  `db:"wholesale_unit_label" json:"wholesale_unit_label"`
	CostPrice          int64   `db:"cost_price" json:"cost_price"`
	Supplier           string  `db:"supplier" json:"supplier"`
	ImageURL           *string `db:"image_url" json:"image_url"`
	QuantityOnHand     int64   `db:"quantity_on_hand" json:"quantity_on_hand"`
	IsActive           bool    `db:"is_active" json:"is_active"`
}

// StockMovement is the audit row written alongside every ledger mutation.
type StockMovement struct {
	ID             string    `db:"id" json:"id"`
	ItemID         string    `db:"item_id" json:"item_id"`
	MovementType   string    `db:"movement_type" json:"movement_type"`
	QuantityChange int64     `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int64     `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int64     `db:"quantity_after" json:"quantity_after"`
	ReferenceID    *string   `db:"reference_id" json:"reference_id"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedBy      *string   `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ImportRow is one externally supplied catalog row, pre-parsed by the
// spreadsheet collaborator. SKU and Barcode may be empty; the reconciler
// assigns them before anything is persisted.
type ImportRow struct {
	SKU                string `json:"sku"`
	Barcode            string `json:"barcode"`
	Name               string `json:"name"`
	Category           string `json:"category"`
	CostPrice          int64  `json:"cost_price"`
	RetailPrice        int64  `json:"retail_price"`
	WholesalePrice     int64  `json:"wholesale_price"`
	WholesaleUnitLabel string `json:"wholesale_unit_label"`
	QuantityOnHand     int64  `json:"quantity_on_hand"`
	Supplier           string `json:"supplier"`
	ImageURL           string `json:"image_url"`
}
