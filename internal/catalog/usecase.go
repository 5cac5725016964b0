package catalog

import (
	"context"

	"github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/model"
)

type UseCase interface {
	CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.CatalogItem, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.CatalogItem, error)
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*model.CatalogItem, error)
	// GetItemByScanCode validates the code's check digit before hitting the store.
	GetItemByScanCode(ctx context.Context, code string) (*model.CatalogItem, error)
	ListItems(ctx context.Context, filters *dto.CatalogFilters) ([]model.CatalogItem, int, error)
}
