package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	catalogmem "github.com/atayatoko/pos-core/internal/catalog/repository"
	"github.com/atayatoko/pos-core/internal/ledger"
	"github.com/atayatoko/pos-core/internal/model"
)

// Memory implements the ledger on top of the in-memory catalog store. The
// check-and-subtract runs inside store.Apply, under the store's lock, which
// gives the same no-interleaving guarantee as the conditional UPDATE.
type Memory struct {
	store *catalogmem.Memory

	mu        sync.Mutex
	movements []model.StockMovement
}

func NewMemory(store *catalogmem.Memory) *Memory {
	return &Memory{store: store}
}

func (m *Memory) TryDecrement(ctx context.Context, itemID string, qty int64, ref string) error {
	return m.store.Apply(itemID, func(item *model.CatalogItem) error {
		if item.QuantityOnHand < qty {
			return &ledger.InsufficientStockError{
				ItemID:    itemID,
				Requested: qty,
				Available: item.QuantityOnHand,
			}
		}
		before := item.QuantityOnHand
		item.QuantityOnHand -= qty
		m.record(itemID, ledger.MovementSale, -qty, before, item.QuantityOnHand, ref, "", "")
		return nil
	})
}

func (m *Memory) Restore(ctx context.Context, itemID string, qty int64, ref string) error {
	return m.store.Apply(itemID, func(item *model.CatalogItem) error {
		before := item.QuantityOnHand
		item.QuantityOnHand += qty
		m.record(itemID, ledger.MovementSaleRollback, qty, before, item.QuantityOnHand, ref, "", "")
		return nil
	})
}

func (m *Memory) Adjust(ctx context.Context, itemID string, delta int64, reason, actor string) error {
	return m.store.Apply(itemID, func(item *model.CatalogItem) error {
		if item.QuantityOnHand+delta < 0 {
			return &ledger.InsufficientStockError{
				ItemID:    itemID,
				Requested: -delta,
				Available: item.QuantityOnHand,
			}
		}
		before := item.QuantityOnHand
		item.QuantityOnHand += delta
		m.record(itemID, ledger.MovementAdjustment, delta, before, item.QuantityOnHand, "", reason, actor)
		return nil
	})
}

func (m *Memory) ListMovements(ctx context.Context, itemID string, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.StockMovement
	for i := len(m.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if m.movements[i].ItemID == itemID {
			out = append(out, m.movements[i])
		}
	}
	return out, nil
}

func (m *Memory) record(itemID, movementType string, change, before, after int64, ref, notes, actor string) {
	var refID, createdBy *string
	if ref != "" {
		refID = &ref
	}
	if actor != "" {
		createdBy = &actor
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, model.StockMovement{
		ID:             uuid.New().String(),
		ItemID:         itemID,
		MovementType:   movementType,
		QuantityChange: change,
		QuantityBefore: before,
		QuantityAfter:  after,
		ReferenceID:    refID,
		Notes:          notes,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	})
}
