package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/atayatoko/pos-core/internal/catalog"
	"github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/identity"
	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/pkg/logger"
)

var (
	ErrSKUTaken        = errors.New("SKU already exists")
	ErrBarcodeTaken    = errors.New("barcode already exists")
	ErrInvalidBarcode  = errors.New("barcode fails scan-code validation")
	ErrInvalidScanCode = errors.New("malformed scan code")
	ErrMissingName     = errors.New("item name is required")
	ErrInvalidPrice    = errors.New("retail price must be positive")
)

type catalogUseCase struct {
	repo   catalog.Repository
	logger logger.Logger
}

func NewCatalogUseCase(repo catalog.Repository, log logger.Logger) catalog.UseCase {
	return &catalogUseCase{repo: repo, logger: log}
}

func (uc *catalogUseCase) CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.CatalogItem, error) {
	if input.Name == "" {
		return nil, ErrMissingName
	}
	if input.RetailPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	sku := input.SKU
	if sku == "" {
		sku = identity.GenerateSKU()
	}
	unique, err := uc.repo.IsSKUUnique(ctx, sku, "")
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, ErrSKUTaken
	}

	barcode := input.Barcode
	if barcode == "" {
		barcode = identity.GenerateScanCode(sku)
	} else if !identity.ValidateScanCode(barcode) {
		return nil, ErrInvalidBarcode
	}
	unique, err = uc.repo.IsBarcodeUnique(ctx, barcode, "")
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, ErrBarcodeTaken
	}

	now := time.Now()
	item := &model.CatalogItem{
		BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		SKU:                sku,
		Barcode:            &barcode,
		Name:               input.Name,
		Category:           input.Category,
		RetailPrice:        input.RetailPrice,
		WholesalePrice:     input.WholesalePrice,
		WholesaleUnitLabel: input.WholesaleUnitLabel,
		CostPrice:          input.CostPrice,
		Supplier:           input.Supplier,
		QuantityOnHand:     input.InitialQuantity,
		IsActive:           true,
	}
	if input.ImageURL != "" {
		item.ImageURL = &input.ImageURL
	}
	if item.QuantityOnHand < 0 {
		item.QuantityOnHand = 0
	}

	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	uc.logger.Info("catalog item created",
		zap.String("item_id", item.ID), zap.String("sku", item.SKU))
	return item, nil
}

func (uc *catalogUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.CatalogItem, error) {
	existing, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, ErrMissingName
	}
	if input.RetailPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	sku := input.SKU
	if sku == "" {
		sku = existing.SKU
	}
	if sku != existing.SKU {
		unique, err := uc.repo.IsSKUUnique(ctx, sku, input.ID)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, ErrSKUTaken
		}
	}

	barcode := existing.Barcode
	if input.Barcode != "" {
		if !identity.ValidateScanCode(input.Barcode) {
			return nil, ErrInvalidBarcode
		}
		unique, err := uc.repo.IsBarcodeUnique(ctx, input.Barcode, input.ID)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, ErrBarcodeTaken
		}
		barcode = &input.Barcode
	}

	updated := &model.CatalogItem{
		BaseModel: model.BaseModel{
			ID:        existing.ID,
			CreatedAt: existing.CreatedAt,
			UpdatedAt: time.Now(),
		},
		SKU:                sku,
		Barcode:            barcode,
		Name:               input.Name,
		Category:           input.Category,
		RetailPrice:        input.RetailPrice,
		WholesalePrice:     input.WholesalePrice,
		WholesaleUnitLabel: input.WholesaleUnitLabel,
		CostPrice:          input.CostPrice,
		Supplier:           input.Supplier,
		QuantityOnHand:     existing.QuantityOnHand,
		IsActive:           existing.IsActive,
	}
	if input.ImageURL != "" {
		updated.ImageURL = &input.ImageURL
	} else {
		updated.ImageURL = existing.ImageURL
	}

	if err := uc.repo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem hides the item from future carts and lookups. Sales committed
// earlier keep their denormalized copies and are unaffected.
func (uc *catalogUseCase) DeleteItem(ctx context.Context, id string) error {
	if err := uc.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("catalog item deactivated", zap.String("item_id", id))
	return nil
}

func (uc *catalogUseCase) GetItem(ctx context.Context, id string) (*model.CatalogItem, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *catalogUseCase) GetItemByScanCode(ctx context.Context, code string) (*model.CatalogItem, error) {
	if !identity.ValidateScanCode(code) {
		return nil, ErrInvalidScanCode
	}
	return uc.repo.FindByScanCode(ctx, code)
}

func (uc *catalogUseCase) ListItems(ctx context.Context, filters *dto.CatalogFilters) ([]model.CatalogItem, int, error) {
	return uc.repo.FindAll(ctx, filters)
}
