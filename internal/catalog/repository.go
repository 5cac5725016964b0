package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/model"
)

var ErrNotFound = errors.New("catalog item not found")

type Repository interface {
	Create(ctx context.Context, item *model.CatalogItem) error
	// CreateBatch persists all items or none of them.
	CreateBatch(ctx context.Context, items []*model.CatalogItem) error
	Update(ctx context.Context, item *model.CatalogItem) error
	SoftDelete(ctx context.Context, id string) error

	FindByID(ctx context.Context, id string) (*model.CatalogItem, error)
	FindByScanCode(ctx context.Context, code string) (*model.CatalogItem, error)
	FindAll(ctx context.Context, filters *dto.CatalogFilters) ([]model.CatalogItem, int, error)

	IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error)
	IsBarcodeUnique(ctx context.Context, barcode, excludeID string) (bool, error)
	// ExistingSKUs returns which of the given SKUs are already in the catalog.
	ExistingSKUs(ctx context.Context, skus []string) ([]string, error)
}
