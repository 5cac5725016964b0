package repository

import (
	"context"
	"sync"
	"time"

	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/sales"
)

type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*model.Sale
	ordered []string
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*model.Sale)}
}

func (m *Memory) Append(ctx context.Context, sale *model.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[sale.ReceiptID]; ok {
		return sales.ErrDuplicate
	}

	cp := *sale
	cp.Lines = append([]model.SaleLine(nil), sale.Lines...)
	m.byID[sale.ReceiptID] = &cp
	m.ordered = append(m.ordered, sale.ReceiptID)
	return nil
}

func (m *Memory) FindByReceiptID(ctx context.Context, receiptID string) (*model.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sale, ok := m.byID[receiptID]
	if !ok {
		return nil, sales.ErrNotFound
	}
	cp := *sale
	cp.Lines = append([]model.SaleLine(nil), sale.Lines...)
	return &cp, nil
}

func (m *Memory) ListByDay(ctx context.Context, day time.Time) ([]model.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	y, mo, d := day.Date()
	var out []model.Sale
	for _, id := range m.ordered {
		sale := m.byID[id]
		sy, smo, sd := sale.Timestamp.Date()
		if sy == y && smo == mo && sd == d {
			cp := *sale
			cp.Lines = append([]model.SaleLine(nil), sale.Lines...)
			out = append(out, cp)
		}
	}
	return out, nil
}

// Count reports how many sales have been committed. Test helper.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
