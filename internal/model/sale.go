package model

import "time"

// SaleLine is a denormalized copy of a cart line at commit time. It carries
// the item name and price as sold, so later catalog edits or deletions never
// change a committed sale.
type SaleLine struct {
	ItemID    string `db:"item_id" json:"item_id"`
	Name      string `db:"name" json:"name"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	UnitLabel string `db:"unit_label" json:"unit_label"`
	Quantity  int64  `db:"quantity" json:"quantity"`
	LineTotal int64  `db:"line_total" json:"line_total"`
}

// Sale is written exactly once per successful checkout and is immutable.
type Sale struct {
	ReceiptID      string     `db:"receipt_id" json:"receipt_id"`
	Timestamp      time.Time  `db:"ts" json:"timestamp"`
	Lines          []SaleLine `db:"-" json:"lines"`
	Subtotal       int64      `db:"subtotal" json:"subtotal"`
	Tax            int64      `db:"tax" json:"tax"`
	Total          int64      `db:"total" json:"total"`
	PaymentMethod  string     `db:"payment_method" json:"payment_method"`
	AmountTendered int64      `db:"amount_tendered" json:"amount_tendered"`
	ChangeDue      int64      `db:"change_due" json:"change_due"`
	Cashier        string     `db:"cashier" json:"cashier"`
}
