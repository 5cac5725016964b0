package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/atayatoko/pos-core/config"
	"github.com/atayatoko/pos-core/internal/cart"
	"github.com/atayatoko/pos-core/internal/checkout"
	"github.com/atayatoko/pos-core/internal/ledger"
	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/sales"
	"github.com/atayatoko/pos-core/pkg/broker"
	"github.com/atayatoko/pos-core/pkg/logger"
)

type checkoutUseCase struct {
	ledger    ledger.Repository
	sales     sales.Repository
	locker    checkout.Locker
	publisher broker.Publisher
	logger    logger.Logger
	cfg       config.CheckoutConfig

	// seq disambiguates receipts issued within the same second.
	seq atomic.Uint64
}

func NewCheckoutUseCase(
	led ledger.Repository,
	salesRepo sales.Repository,
	locker checkout.Locker,
	publisher broker.Publisher,
	log logger.Logger,
	cfg config.CheckoutConfig,
) checkout.UseCase {
	uc := &checkoutUseCase{
		ledger:    led,
		sales:     salesRepo,
		locker:    locker,
		publisher: publisher,
		logger:    log,
		cfg:       cfg,
	}
	// Seed from the clock so a restarted process does not replay the same
	// counter sequence within the second it came back up.
	uc.seq.Store(uint64(time.Now().UnixNano()))
	return uc
}

// Validate computes subtotal, tax and total for the cart and checks the
// payment covers them. Tax is rounded half-up to the nearest rupiah; that
// single rounding rule applies everywhere a total is computed.
func (uc *checkoutUseCase) Validate(c *cart.Cart, pay checkout.Payment) (*checkout.Totals, error) {
	return uc.validate(c, pay)
}

func (uc *checkoutUseCase) validate(c *cart.Cart, pay checkout.Payment) (*checkout.Totals, error) {
	if c == nil || c.Len() == 0 {
		return nil, &checkout.ValidationError{Reason: "cart is empty"}
	}

	var subtotal int64
	for _, line := range c.Lines() {
		if line.Quantity <= 0 {
			return nil, &checkout.ValidationError{
				Reason: fmt.Sprintf("line %s has non-positive quantity %d", line.ItemID, line.Quantity),
			}
		}
		subtotal += line.Quantity * line.UnitPrice
	}

	tax := roundHalfUp(subtotal*uc.cfg.TaxRateBps, 10000)
	totals := &checkout.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}

	if pay.Method == checkout.PaymentCash {
		if pay.AmountTendered < totals.Total {
			return nil, &checkout.ValidationError{
				Reason: fmt.Sprintf("amount tendered %d below total %d", pay.AmountTendered, totals.Total),
			}
		}
		totals.ChangeDue = pay.AmountTendered - totals.Total
	}
	return totals, nil
}

func (uc *checkoutUseCase) Commit(ctx context.Context, c *cart.Cart, pay checkout.Payment, cashier string) (*checkout.Result, error) {
	result := &checkout.Result{Status: checkout.StatusBuilt}

	result.Status = checkout.StatusValidating
	totals, err := uc.validate(c, pay)
	if err != nil {
		result.Status = checkout.StatusRejected
		return result, err
	}

	result.Status = checkout.StatusCommitting

	// Locks are taken in itemID order so two checkouts sharing items can
	// never deadlock on each other.
	lines := c.Lines()
	sorted := make([]cart.Line, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	token := uuid.New().String()
	locked, err := uc.acquireAll(ctx, sorted, token)
	if err != nil {
		result.Status = checkout.StatusRejected
		return result, err
	}
	defer uc.releaseAll(ctx, locked, token)

	receiptID, err := uc.freshReceiptID(ctx)
	if err != nil {
		result.Status = checkout.StatusRejected
		return result, err
	}

	applied, short, err := uc.decrementAll(ctx, sorted, receiptID)
	if err != nil || len(short) > 0 {
		uc.rollback(ctx, applied, receiptID)
		result.Status = checkout.StatusRejected
		if err != nil {
			return result, err
		}
		uc.logger.Warn("checkout rejected, stock short",
			zap.String("receipt_id", receiptID), zap.Int("short_lines", len(short)))
		return result, &checkout.StockError{Short: short}
	}

	sale := buildSale(receiptID, lines, totals, pay, cashier)
	if err := uc.sales.Append(ctx, sale); err != nil {
		// The sale write is the commit point; compensate the decrements so
		// no partial state survives.
		uc.rollback(ctx, applied, receiptID)
		result.Status = checkout.StatusRejected
		return result, errors.Wrap(err, "write sale record")
	}

	uc.logger.Info("checkout committed",
		zap.String("receipt_id", receiptID),
		zap.Int64("total", sale.Total),
		zap.String("cashier", cashier))

	go uc.publishSale(sale)

	result.Status = checkout.StatusCommitted
	result.Sale = sale
	return result, nil
}

func (uc *checkoutUseCase) acquireAll(ctx context.Context, lines []cart.Line, token string) ([]string, error) {
	ttl := time.Duration(uc.cfg.LockTTLSeconds) * time.Second
	backoff := time.Duration(uc.cfg.LockBackoffMS) * time.Millisecond

	var locked []string
	for _, line := range lines {
		key := "lock:checkout:" + line.ItemID
		acquired := false
		for attempt := 0; attempt < uc.cfg.LockAttempts; attempt++ {
			ok, err := uc.locker.AcquireLock(ctx, key, token, ttl)
			if err != nil {
				uc.logger.Error("lock acquire failed", zap.String("key", key), zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			select {
			case <-ctx.Done():
				uc.releaseAll(ctx, locked, token)
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if !acquired {
			uc.releaseAll(ctx, locked, token)
			return nil, checkout.ErrCommitConflict
		}
		locked = append(locked, key)
	}
	return locked, nil
}

func (uc *checkoutUseCase) releaseAll(ctx context.Context, keys []string, token string) {
	for _, key := range keys {
		if err := uc.locker.ReleaseLock(ctx, key, token); err != nil {
			uc.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// decrementAll attempts every line even after a failure so the caller gets
// the complete list of short lines in one pass.
func (uc *checkoutUseCase) decrementAll(ctx context.Context, lines []cart.Line, receiptID string) (applied []cart.Line, short []checkout.ShortLine, err error) {
	for _, line := range lines {
		decErr := uc.ledger.TryDecrement(ctx, line.ItemID, line.Quantity, receiptID)
		if decErr == nil {
			applied = append(applied, line)
			continue
		}

		var insufficient *ledger.InsufficientStockError
		if errors.As(decErr, &insufficient) {
			short = append(short, checkout.ShortLine{
				ItemID:    insufficient.ItemID,
				Requested: insufficient.Requested,
				Available: insufficient.Available,
			})
			continue
		}
		return applied, short, decErr
	}
	return applied, short, nil
}

func (uc *checkoutUseCase) rollback(ctx context.Context, applied []cart.Line, receiptID string) {
	for _, line := range applied {
		if err := uc.ledger.Restore(ctx, line.ItemID, line.Quantity, receiptID); err != nil {
			// A failed compensation is the one state we cannot fix in-band.
			uc.logger.Error("stock restore failed, manual correction needed",
				zap.String("item_id", line.ItemID),
				zap.Int64("quantity", line.Quantity),
				zap.String("receipt_id", receiptID),
				zap.Error(err))
		}
	}
}

func buildSale(receiptID string, lines []cart.Line, totals *checkout.Totals, pay checkout.Payment, cashier string) *model.Sale {
	saleLines := make([]model.SaleLine, len(lines))
	for i, line := range lines {
		saleLines[i] = model.SaleLine{
			ItemID:    line.ItemID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			UnitLabel: line.UnitLabel,
			Quantity:  line.Quantity,
			LineTotal: line.Quantity * line.UnitPrice,
		}
	}
	return &model.Sale{
		ReceiptID:      receiptID,
		Timestamp:      time.Now(),
		Lines:          saleLines,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Total:          totals.Total,
		PaymentMethod:  pay.Method,
		AmountTendered: pay.AmountTendered,
		ChangeDue:      totals.ChangeDue,
		Cashier:        cashier,
	}
}

// nextReceiptID yields e.g. TK20250829-143055-007: prefix, date, time and a
// rolling counter so two receipts in the same second still differ.
func (uc *checkoutUseCase) nextReceiptID(now time.Time) string {
	n := uc.seq.Add(1) % 1000
	return fmt.Sprintf("%s%s-%s-%03d",
		uc.cfg.ReceiptPrefix, now.Format("20060102"), now.Format("150405"), n)
}

// freshReceiptID generates ids until one is not already on record. The
// counter makes collisions rare; the lookup catches the leftover case of a
// restart replaying a counter value within the same second.
func (uc *checkoutUseCase) freshReceiptID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := uc.nextReceiptID(time.Now())
		_, err := uc.sales.FindByReceiptID(ctx, id)
		if errors.Is(err, sales.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "check receipt id")
		}
		uc.logger.Warn("receipt id already issued, regenerating", zap.String("receipt_id", id))
	}
	return "", errors.New("could not generate a fresh receipt id")
}

type saleCommittedEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   *model.Sale `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// publishSale runs detached from the request; the timeout keeps a stalled
// broker from pinning a goroutine per checkout.
func (uc *checkoutUseCase) publishSale(sale *model.Sale) {
	if uc.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := saleCommittedEvent{
		EventID:   uuid.New().String(),
		EventType: "SaleCommitted",
		Payload:   sale,
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		uc.logger.Error("failed to marshal sale event", zap.Error(err))
		return
	}
	if err := uc.publisher.Publish(ctx, sale.ReceiptID, value); err != nil {
		uc.logger.Error("failed to publish sale event",
			zap.String("receipt_id", sale.ReceiptID), zap.Error(err))
	}
}

// roundHalfUp divides num by den rounding half away from zero; amounts are
// never negative here so half-up is what it does.
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
