package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atayatoko/pos-core/internal/catalog"
	"github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/catalog/repository"
	"github.com/atayatoko/pos-core/internal/identity"
	"github.com/atayatoko/pos-core/pkg/logger"
)

func newUC() (catalog.UseCase, *repository.Memory) {
	repo := repository.NewMemory()
	return NewCatalogUseCase(repo, logger.NewNop()), repo
}

func TestCreateItemAssignsIdentifiers(t *testing.T) {
	uc, _ := newUC()

	item, err := uc.CreateItem(context.Background(), &dto.CreateItemInput{
		Name:            "Indomie Goreng",
		Category:        "makanan",
		RetailPrice:     3500,
		WholesalePrice:  2800,
		InitialQuantity: 10,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.SKU)
	require.NotNil(t, item.Barcode)
	assert.True(t, identity.ValidateScanCode(*item.Barcode))
	assert.Equal(t, *item.Barcode, identity.GenerateScanCode(item.SKU))
	assert.True(t, item.IsActive)
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()

	_, err := uc.CreateItem(ctx, &dto.CreateItemInput{Name: "A", SKU: "SKU-1", RetailPrice: 100})
	require.NoError(t, err)

	_, err = uc.CreateItem(ctx, &dto.CreateItemInput{Name: "B", SKU: "SKU-1", RetailPrice: 200})
	assert.ErrorIs(t, err, ErrSKUTaken)
}

func TestCreateItemRejectsInvalidInput(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()

	_, err := uc.CreateItem(ctx, &dto.CreateItemInput{RetailPrice: 100})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = uc.CreateItem(ctx, &dto.CreateItemInput{Name: "A"})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = uc.CreateItem(ctx, &dto.CreateItemInput{Name: "A", RetailPrice: 100, Barcode: "not-a-code"})
	assert.ErrorIs(t, err, ErrInvalidBarcode)
}

func TestSoftDeleteHidesFromLookups(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()

	item, err := uc.CreateItem(ctx, &dto.CreateItemInput{Name: "Aqua 600ml", RetailPrice: 4000})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteItem(ctx, item.ID))

	_, err = uc.GetItemByScanCode(ctx, *item.Barcode)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	items, count, err := uc.ListItems(ctx, &dto.CatalogFilters{})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, items)
}

func TestUpdateItemKeepsQuantity(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()

	item, err := uc.CreateItem(ctx, &dto.CreateItemInput{
		Name: "Sari Roti", RetailPrice: 12000, InitialQuantity: 25,
	})
	require.NoError(t, err)

	updated, err := uc.UpdateItem(ctx, &dto.UpdateItemInput{
		ID:          item.ID,
		Name:        "Sari Roti Tawar",
		RetailPrice: 13000,
	})
	require.NoError(t, err)

	assert.Equal(t, "Sari Roti Tawar", updated.Name)
	assert.Equal(t, int64(13000), updated.RetailPrice)
	assert.Equal(t, int64(25), updated.QuantityOnHand, "update must not touch on-hand quantity")
}

func TestGetItemByScanCode(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()

	item, err := uc.CreateItem(ctx, &dto.CreateItemInput{Name: "Lifebuoy", RetailPrice: 5500})
	require.NoError(t, err)

	found, err := uc.GetItemByScanCode(ctx, *item.Barcode)
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	_, err = uc.GetItemByScanCode(ctx, "1234567890123")
	assert.Error(t, err, "check digit mismatch must be rejected before lookup")
}
