// Package cart holds the per-session shopping cart. A cart belongs to a
// single session and is never shared, so it carries no locking. Stock is
// deliberately not checked here: adding to a cart must never fail because
// another till got there first — sufficiency is enforced at checkout only.
package cart

import (
	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/pricing"
)

var ErrNegativeQuantity = errors.New("cart: quantity must not be negative")

// Line is one cart entry. UnitPrice and UnitLabel are snapshotted from the
// pricing policy at add time and survive later catalog price changes.
type Line struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	UnitLabel string `json:"unit_label"`
}

// Cart maps item ids to lines, one line per item. Insertion order is kept
// only so receipts list items in the order they were scanned.
type Cart struct {
	lines map[string]*Line
	order []string
}

func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// Add resolves the price for the session's tier and increments the item's
// line by one, creating it at quantity 1 on first add.
func (c *Cart) Add(item *model.CatalogItem, tier pricing.Tier) {
	if line, ok := c.lines[item.ID]; ok {
		line.Quantity++
		return
	}

	price, label := pricing.Resolve(item, tier)
	c.lines[item.ID] = &Line{
		ItemID:    item.ID,
		Name:      item.Name,
		Quantity:  1,
		UnitPrice: price,
		UnitLabel: label,
	}
	c.order = append(c.order, item.ID)
}

// AddQuantity is Add repeated qty times without the loop; it keeps the same
// snapshot rule. Non-positive quantities are ignored.
func (c *Cart) AddQuantity(item *model.CatalogItem, tier pricing.Tier, qty int64) {
	if qty <= 0 {
		return
	}
	c.Add(item, tier)
	c.lines[item.ID].Quantity += qty - 1
}

// SetQuantity overrides a line's quantity. Zero removes the line, negative
// values are rejected. Unknown item ids are a no-op.
func (c *Cart) SetQuantity(itemID string, qty int64) error {
	if qty < 0 {
		return ErrNegativeQuantity
	}
	if qty == 0 {
		c.Remove(itemID)
		return nil
	}
	if line, ok := c.lines[itemID]; ok {
		line.Quantity = qty
	}
	return nil
}

func (c *Cart) Remove(itemID string) {
	if _, ok := c.lines[itemID]; !ok {
		return
	}
	delete(c.lines, itemID)
	for i, id := range c.order {
		if id == itemID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Clear() {
	c.lines = make(map[string]*Line)
	c.order = nil
}

// Total sums quantity times snapshotted unit price over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, line := range c.lines {
		total += line.Quantity * line.UnitPrice
	}
	return total
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}
