package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atayatoko/pos-core/config"
	"github.com/atayatoko/pos-core/internal/cart"
	catalogmem "github.com/atayatoko/pos-core/internal/catalog/repository"
	"github.com/atayatoko/pos-core/internal/checkout"
	ledgermem "github.com/atayatoko/pos-core/internal/ledger/repository"
	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/pricing"
	salesmem "github.com/atayatoko/pos-core/internal/sales/repository"
	"github.com/atayatoko/pos-core/pkg/broker"
	"github.com/atayatoko/pos-core/pkg/logger"
)

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		TaxRateBps:     1100,
		ReceiptPrefix:  "TK",
		LockAttempts:   3,
		LockBackoffMS:  1,
		LockTTLSeconds: 5,
	}
}

type fixture struct {
	uc    checkout.UseCase
	store *catalogmem.Memory
	sales *salesmem.Memory
}

func newFixture(t *testing.T, items ...*model.CatalogItem) *fixture {
	t.Helper()
	store := catalogmem.NewMemory()
	for _, item := range items {
		require.NoError(t, store.Create(context.Background(), item))
	}

	salesRepo := salesmem.NewMemory()
	uc := NewCheckoutUseCase(
		ledgermem.NewMemory(store),
		salesRepo,
		checkout.NewMemoryLocker(),
		broker.NopPublisher{},
		logger.NewNop(),
		testConfig(),
	)
	return &fixture{uc: uc, store: store, sales: salesRepo}
}

func catalogItem(id, name string, retail, wholesale, qty int64) *model.CatalogItem {
	return &model.CatalogItem{
		BaseModel:          model.BaseModel{ID: id},
		SKU:                "SKU-" + id,
		Name:               name,
		RetailPrice:        retail,
		WholesalePrice:     wholesale,
		WholesaleUnitLabel: "dus (24 pcs)",
		QuantityOnHand:     qty,
		IsActive:           true,
	}
}

func (f *fixture) quantity(t *testing.T, id string) int64 {
	t.Helper()
	item, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item.QuantityOnHand
}

func cashPayment(amount int64) checkout.Payment {
	return checkout.Payment{Method: checkout.PaymentCash, AmountTendered: amount}
}

func TestValidateTotalsAndRounding(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))

	c := cart.New()
	item, _ := f.store.FindByID(context.Background(), "p1")
	c.AddQuantity(item, pricing.TierRetail, 6)

	totals, err := f.uc.Validate(c, cashPayment(25000))
	require.NoError(t, err)

	// 6 * 3500 = 21000; 11% = 2310 exactly, no rounding needed.
	assert.Equal(t, int64(21000), totals.Subtotal)
	assert.Equal(t, int64(2310), totals.Tax)
	assert.Equal(t, int64(23310), totals.Total)
	assert.Equal(t, int64(1690), totals.ChangeDue)
}

func TestValidateRoundsTaxHalfUp(t *testing.T) {
	// 95 * 11% = 10.45 -> 10; 5 * 11% = 0.55 -> 1.
	f := newFixture(t,
		catalogItem("p1", "Permen", 95, 90, 100),
		catalogItem("p2", "Karet", 5, 4, 100),
	)
	ctx := context.Background()

	c := cart.New()
	p1, _ := f.store.FindByID(ctx, "p1")
	c.Add(p1, pricing.TierRetail)
	totals, err := f.uc.Validate(c, cashPayment(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(10), totals.Tax)

	c2 := cart.New()
	p2, _ := f.store.FindByID(ctx, "p2")
	c2.Add(p2, pricing.TierRetail)
	totals, err = f.uc.Validate(c2, cashPayment(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Tax)
}

func TestValidateRejectsShortTender(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))

	c := cart.New()
	item, _ := f.store.FindByID(context.Background(), "p1")
	c.AddQuantity(item, pricing.TierRetail, 6)

	_, err := f.uc.Validate(c, cashPayment(23309)) // total is 23310
	var verr *checkout.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	var verr *checkout.ValidationError

	_, err := f.uc.Validate(cart.New(), cashPayment(1000))
	assert.ErrorAs(t, err, &verr)

	_, err = f.uc.Validate(nil, cashPayment(1000))
	assert.ErrorAs(t, err, &verr)
}

func TestCommitWritesSaleAndDecrements(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))
	ctx := context.Background()

	c := cart.New()
	item, _ := f.store.FindByID(ctx, "p1")
	c.AddQuantity(item, pricing.TierRetail, 6)

	res, err := f.uc.Commit(ctx, c, cashPayment(25000), "kasir@atayatoko.id")
	require.NoError(t, err)

	assert.Equal(t, checkout.StatusCommitted, res.Status)
	sale := res.Sale
	require.NotNil(t, sale)
	assert.True(t, strings.HasPrefix(sale.ReceiptID, "TK"))
	assert.Equal(t, int64(23310), sale.Total)
	assert.Equal(t, int64(1690), sale.ChangeDue)
	assert.Equal(t, "kasir@atayatoko.id", sale.Cashier)
	require.Len(t, sale.Lines, 1)
	assert.Equal(t, int64(21000), sale.Lines[0].LineTotal)

	assert.Equal(t, int64(4), f.quantity(t, "p1"))

	stored, err := f.sales.FindByReceiptID(ctx, sale.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, sale.Total, stored.Total)
}

// The spec's example scenario: stock 10, two concurrent carts of 6. Exactly
// one commit wins, the loser sees InsufficientStock, and 4 units remain.
func TestConcurrentCommitsNeverOversell(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))
	ctx := context.Background()

	run := func(results chan<- error) {
		c := cart.New()
		item, _ := f.store.FindByID(ctx, "p1")
		c.AddQuantity(item, pricing.TierRetail, 6)
		_, err := f.uc.Commit(ctx, c, cashPayment(30000), "kasir@atayatoko.id")
		results <- err
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(results)
		}()
	}
	wg.Wait()
	close(results)

	var failures []error
	for err := range results {
		if err != nil {
			failures = append(failures, err)
		}
	}

	require.Len(t, failures, 1, "exactly one commit must fail")
	if !errors.Is(failures[0], checkout.ErrCommitConflict) {
		// The loser that got past the lock must see the shortage.
		var stockErr *checkout.StockError
		require.ErrorAs(t, failures[0], &stockErr)
	}

	assert.Equal(t, int64(4), f.quantity(t, "p1"))
	assert.Equal(t, 1, f.sales.Count())
}

func TestCommitRollsBackOnPartialShortage(t *testing.T) {
	f := newFixture(t,
		catalogItem("p1", "Indomie Goreng", 3500, 2800, 100),
		catalogItem("p2", "Aqua 600ml", 4000, 3200, 2),
	)
	ctx := context.Background()

	c := cart.New()
	p1, _ := f.store.FindByID(ctx, "p1")
	p2, _ := f.store.FindByID(ctx, "p2")
	c.AddQuantity(p1, pricing.TierRetail, 5)
	c.AddQuantity(p2, pricing.TierRetail, 3) // only 2 on hand

	res, err := f.uc.Commit(ctx, c, cashPayment(100000), "kasir@atayatoko.id")

	require.NotNil(t, res)
	assert.Equal(t, checkout.StatusRejected, res.Status)
	assert.Nil(t, res.Sale)

	var stockErr *checkout.StockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Short, 1)
	assert.Equal(t, "p2", stockErr.Short[0].ItemID)
	assert.Equal(t, int64(3), stockErr.Short[0].Requested)
	assert.Equal(t, int64(2), stockErr.Short[0].Available)

	// Full rollback: every line back at its pre-commit quantity, no sale.
	assert.Equal(t, int64(100), f.quantity(t, "p1"))
	assert.Equal(t, int64(2), f.quantity(t, "p2"))
	assert.Equal(t, 0, f.sales.Count())
}

func TestCommitPriceSnapshotSurvivesCatalogEdit(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))
	ctx := context.Background()

	c := cart.New()
	item, _ := f.store.FindByID(ctx, "p1")
	c.AddQuantity(item, pricing.TierRetail, 2)

	// Price hike between add and commit must not reach this cart.
	item.RetailPrice = 5000
	require.NoError(t, f.store.Update(ctx, item))

	res, err := f.uc.Commit(ctx, c, cashPayment(10000), "kasir@atayatoko.id")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), res.Sale.Subtotal)
	assert.Equal(t, int64(3500), res.Sale.Lines[0].UnitPrice)
}

func TestCommitConflictWhenLockHeld(t *testing.T) {
	store := catalogmem.NewMemory()
	require.NoError(t, store.Create(context.Background(),
		catalogItem("p1", "Indomie Goreng", 3500, 2800, 10)))

	locker := checkout.NewMemoryLocker()
	uc := NewCheckoutUseCase(
		ledgermem.NewMemory(store),
		salesmem.NewMemory(),
		locker,
		broker.NopPublisher{},
		logger.NewNop(),
		testConfig(),
	)

	// Another till holds the item's lock for longer than our retry window.
	ok, err := locker.AcquireLock(context.Background(), "lock:checkout:p1", "other-till", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	c := cart.New()
	item, _ := store.FindByID(context.Background(), "p1")
	c.Add(item, pricing.TierRetail)

	_, err = uc.Commit(context.Background(), c, cashPayment(10000), "kasir@atayatoko.id")
	assert.ErrorIs(t, err, checkout.ErrCommitConflict)
	assert.Equal(t, int64(10), func() int64 {
		it, _ := store.FindByID(context.Background(), "p1")
		return it.QuantityOnHand
	}())
}

func TestWholesaleCommitUsesWholesalePrice(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 50))
	ctx := context.Background()

	c := cart.New()
	item, _ := f.store.FindByID(ctx, "p1")
	c.AddQuantity(item, pricing.TierWholesale, 10)

	res, err := f.uc.Commit(ctx, c, cashPayment(50000), "kasir@atayatoko.id")
	require.NoError(t, err)
	assert.Equal(t, int64(28000), res.Sale.Subtotal)
	assert.Equal(t, "dus (24 pcs)", res.Sale.Lines[0].UnitLabel)
}

func TestCommitResultCarriesStatus(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))
	ctx := context.Background()

	// Validation failure is terminal Rejected.
	res, err := f.uc.Commit(ctx, cart.New(), cashPayment(1000), "kasir@atayatoko.id")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, checkout.StatusRejected, res.Status)
	assert.Nil(t, res.Sale)

	c := cart.New()
	item, _ := f.store.FindByID(ctx, "p1")
	c.Add(item, pricing.TierRetail)

	res, err = f.uc.Commit(ctx, c, cashPayment(10000), "kasir@atayatoko.id")
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusCommitted, res.Status)
	require.NotNil(t, res.Sale)
}

// recordingPublisher hands each publish context back to the test.
type recordingPublisher struct {
	ctxs chan context.Context
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, value []byte) error {
	p.ctxs <- ctx
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishRunsUnderDeadline(t *testing.T) {
	store := catalogmem.NewMemory()
	require.NoError(t, store.Create(context.Background(),
		catalogItem("p1", "Indomie Goreng", 3500, 2800, 10)))

	pub := &recordingPublisher{ctxs: make(chan context.Context, 1)}
	uc := NewCheckoutUseCase(
		ledgermem.NewMemory(store),
		salesmem.NewMemory(),
		checkout.NewMemoryLocker(),
		pub,
		logger.NewNop(),
		testConfig(),
	)

	c := cart.New()
	item, _ := store.FindByID(context.Background(), "p1")
	c.Add(item, pricing.TierRetail)

	_, err := uc.Commit(context.Background(), c, cashPayment(10000), "kasir@atayatoko.id")
	require.NoError(t, err)

	select {
	case ctx := <-pub.ctxs:
		_, ok := ctx.Deadline()
		assert.True(t, ok, "sale event publish must carry a deadline")
	case <-time.After(2 * time.Second):
		t.Fatal("sale event was never published")
	}
}

// A process restart must not replay an already-issued receipt id. The second
// usecase shares the sales store and has its counter wound back to collide
// with the first commit's id.
func TestRestartDoesNotReplayReceiptID(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 10))
	ctx := context.Background()

	c := cart.New()
	item, _ := f.store.FindByID(ctx, "p1")
	c.Add(item, pricing.TierRetail)

	first, err := f.uc.Commit(ctx, c, cashPayment(10000), "kasir@atayatoko.id")
	require.NoError(t, err)

	counter, err := strconv.Atoi(first.Sale.ReceiptID[len(first.Sale.ReceiptID)-3:])
	require.NoError(t, err)

	restarted := NewCheckoutUseCase(
		ledgermem.NewMemory(f.store),
		f.sales,
		checkout.NewMemoryLocker(),
		broker.NopPublisher{},
		logger.NewNop(),
		testConfig(),
	).(*checkoutUseCase)
	restarted.seq.Store(uint64(counter) + 999) // next id replays the counter

	c2 := cart.New()
	c2.Add(item, pricing.TierRetail)

	second, err := restarted.Commit(ctx, c2, cashPayment(10000), "kasir@atayatoko.id")
	require.NoError(t, err)
	assert.NotEqual(t, first.Sale.ReceiptID, second.Sale.ReceiptID)
	assert.Equal(t, 2, f.sales.Count())
}

func TestReceiptIDsDifferWithinSameSecond(t *testing.T) {
	f := newFixture(t, catalogItem("p1", "Indomie Goreng", 3500, 2800, 100))
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		c := cart.New()
		item, _ := f.store.FindByID(ctx, "p1")
		c.Add(item, pricing.TierRetail)

		res, err := f.uc.Commit(ctx, c, cashPayment(10000), "kasir@atayatoko.id")
		require.NoError(t, err)
		assert.False(t, seen[res.Sale.ReceiptID], "duplicate receipt id %s", res.Sale.ReceiptID)
		seen[res.Sale.ReceiptID] = true
	}
}
