package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/atayatoko/pos-core/internal/catalog"
	"github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/model"
)

// Memory is a mutex-guarded in-memory catalog store. It backs tests and
// zero-infrastructure deployments, and the memory ledger piggybacks on its
// lock through Apply for atomic quantity updates.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*model.CatalogItem
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*model.CatalogItem)}
}

// Apply runs fn against the stored item while holding the store lock. The
// ledger uses this for its check-and-subtract: nothing can interleave with
// fn on any item.
func (m *Memory) Apply(itemID string, fn func(item *model.CatalogItem) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return catalog.ErrNotFound
	}
	return fn(item)
}

func (m *Memory) Create(ctx context.Context, item *model.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *Memory) CreateBatch(ctx context.Context, items []*model.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		cp := *item
		m.items[item.ID] = &cp
	}
	return nil
}

func (m *Memory) Update(ctx context.Context, item *model.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[item.ID]
	if !ok {
		return catalog.ErrNotFound
	}

	qty := stored.QuantityOnHand // ledger-owned, never set here
	cp := *item
	cp.QuantityOnHand = qty
	m.items[item.ID] = &cp
	return nil
}

func (m *Memory) SoftDelete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	item.IsActive = false
	return nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*model.CatalogItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *Memory) FindByScanCode(ctx context.Context, code string) (*model.CatalogItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.items {
		if item.IsActive && item.Barcode != nil && *item.Barcode == code {
			cp := *item
			return &cp, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *Memory) FindAll(ctx context.Context, f *dto.CatalogFilters) ([]model.CatalogItem, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []model.CatalogItem
	for _, item := range m.items {
		if !f.IncludeHidden && !item.IsActive {
			continue
		}
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, *item)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	count := len(matched)
	if f.PageSize > 0 {
		start := (f.Page - 1) * f.PageSize
		if start < 0 {
			start = 0
		}
		if start > count {
			start = count
		}
		end := start + f.PageSize
		if end > count {
			end = count
		}
		matched = matched[start:end]
	}
	return matched, count, nil
}

func (m *Memory) IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.items {
		if item.SKU == sku && item.ID != excludeID {
			return false, nil
		}
	}
	return true, nil
}

func (m *Memory) IsBarcodeUnique(ctx context.Context, barcode, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.items {
		if item.Barcode != nil && *item.Barcode == barcode && item.ID != excludeID {
			return false, nil
		}
	}
	return true, nil
}

func (m *Memory) ExistingSKUs(ctx context.Context, skus []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		want[sku] = struct{}{}
	}

	var existing []string
	for _, item := range m.items {
		if _, ok := want[item.SKU]; ok {
			existing = append(existing, item.SKU)
		}
	}
	return existing, nil
}
