// Package ledger is the authoritative on-hand-quantity store. Its single
// correctness-critical primitive is TryDecrement: an atomic check-and-
// subtract that can never drive a quantity negative, no matter how callers
// interleave. Nothing else in the system writes quantity_on_hand.
package ledger

import (
	"context"
	"fmt"

	"github.com/atayatoko/pos-core/internal/model"
)

const (
	MovementSale         = "sale"
	MovementSaleRollback = "sale_rollback"
	MovementAdjustment   = "adjustment"
)

// InsufficientStockError reports a decrement that would have gone negative.
// Callers must not retry it; the enclosing checkout fails and reports the
// short lines to the user instead.
type InsufficientStockError struct {
	ItemID    string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d (short %d)",
		e.ItemID, e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

type Repository interface {
	// TryDecrement atomically subtracts qty from the item's on-hand
	// quantity if and only if enough stock remains, and records a sale
	// movement referencing ref. It never partially applies.
	TryDecrement(ctx context.Context, itemID string, qty int64, ref string) error

	// Restore re-adds a previously decremented quantity. It is the
	// compensating action for a failed checkout commit.
	Restore(ctx context.Context, itemID string, qty int64, ref string) error

	// Adjust applies a signed stock correction (receiving, stock-take).
	// Adjustments that would go negative are rejected.
	Adjust(ctx context.Context, itemID string, delta int64, reason, actor string) error

	ListMovements(ctx context.Context, itemID string, limit int) ([]model.StockMovement, error)
}
