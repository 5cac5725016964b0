package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/pricing"
)

func item(id, name string, retail, wholesale int64) *model.CatalogItem {
	return &model.CatalogItem{
		BaseModel:          model.BaseModel{ID: id},
		Name:               name,
		RetailPrice:        retail,
		WholesalePrice:     wholesale,
		WholesaleUnitLabel: "dus (24 pcs)",
	}
}

func TestAddAccumulatesQuantity(t *testing.T) {
	c := New()
	indomie := item("p1", "Indomie Goreng", 3500, 2800)

	c.Add(indomie, pricing.TierRetail)
	c.Add(indomie, pricing.TierRetail)
	c.Add(indomie, pricing.TierRetail)

	require.Equal(t, 1, c.Len())
	lines := c.Lines()
	assert.Equal(t, int64(3), lines[0].Quantity)
	assert.Equal(t, int64(3500), lines[0].UnitPrice)
	assert.Equal(t, "unit", lines[0].UnitLabel)
	assert.Equal(t, int64(10500), c.Total())
}

func TestPriceSnapshotInvariance(t *testing.T) {
	c := New()
	aqua := item("p2", "Aqua 600ml", 4000, 3200)
	c.Add(aqua, pricing.TierRetail)

	// A catalog price change after add must not move the cart total.
	aqua.RetailPrice = 9999
	c.Add(aqua, pricing.TierRetail)

	assert.Equal(t, int64(8000), c.Total())
	assert.Equal(t, int64(4000), c.Lines()[0].UnitPrice)
}

func TestWholesaleSnapshot(t *testing.T) {
	c := New()
	c.Add(item("p3", "Sari Roti", 12000, 9500), pricing.TierWholesale)

	line := c.Lines()[0]
	assert.Equal(t, int64(9500), line.UnitPrice)
	assert.Equal(t, "dus (24 pcs)", line.UnitLabel)
}

func TestSetQuantity(t *testing.T) {
	c := New()
	c.Add(item("p1", "Indomie Goreng", 3500, 2800), pricing.TierRetail)

	require.NoError(t, c.SetQuantity("p1", 6))
	assert.Equal(t, int64(21000), c.Total())

	assert.ErrorIs(t, c.SetQuantity("p1", -1), ErrNegativeQuantity)
	assert.Equal(t, int64(21000), c.Total(), "rejected set must leave the cart intact")

	require.NoError(t, c.SetQuantity("p1", 0))
	assert.Equal(t, 0, c.Len())
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	c.Add(item("p1", "Indomie Goreng", 3500, 2800), pricing.TierRetail)
	c.Add(item("p2", "Aqua 600ml", 4000, 3200), pricing.TierRetail)

	c.Remove("p1")
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "p2", c.Lines()[0].ItemID)

	c.Remove("missing") // no-op
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Total())
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	c := New()
	c.Add(item("b", "B", 100, 90), pricing.TierRetail)
	c.Add(item("a", "A", 200, 180), pricing.TierRetail)
	c.Add(item("b", "B", 100, 90), pricing.TierRetail)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[0].ItemID)
	assert.Equal(t, "a", lines[1].ItemID)
}

func TestAddQuantity(t *testing.T) {
	c := New()
	c.AddQuantity(item("p1", "Indomie Goreng", 3500, 2800), pricing.TierRetail, 6)
	assert.Equal(t, int64(21000), c.Total())

	c.AddQuantity(item("p1", "Indomie Goreng", 3500, 2800), pricing.TierRetail, 0)
	assert.Equal(t, int64(21000), c.Total())
}
