package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/cart"
	"github.com/atayatoko/pos-core/internal/model"
)

// Status tracks a checkout through its state machine. Committed and
// Rejected are terminal.
type Status string

const (
	StatusBuilt      Status = "BUILT"
	StatusValidating Status = "VALIDATING"
	StatusCommitting Status = "COMMITTING"
	StatusCommitted  Status = "COMMITTED"
	StatusRejected   Status = "REJECTED"
)

const PaymentCash = "cash"

type Payment struct {
	Method         string `json:"method"`
	AmountTendered int64  `json:"amount_tendered"`
}

type Totals struct {
	Subtotal  int64 `json:"subtotal"`
	Tax       int64 `json:"tax"`
	Total     int64 `json:"total"`
	ChangeDue int64 `json:"change_due"`
}

// ValidationError covers malformed carts and insufficient tender. The cart
// is left intact; the caller fixes the input and resubmits.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "checkout validation: " + e.Reason
}

// ErrCommitConflict means per-item exclusivity could not be acquired within
// the bounded window. Transient: the whole checkout is safe to retry.
var ErrCommitConflict = errors.New("checkout: could not acquire item locks, try again")

// ShortLine identifies one cart line that could not be covered by stock.
type ShortLine struct {
	ItemID    string `json:"item_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// StockError aggregates every short line of a rejected commit. All
// decrements applied before the failure have been rolled back.
type StockError struct {
	Short []ShortLine
}

func (e *StockError) Error() string {
	ids := make([]string, len(e.Short))
	for i, s := range e.Short {
		ids[i] = fmt.Sprintf("%s (short %d)", s.ItemID, s.Requested-s.Available)
	}
	return "insufficient stock: " + strings.Join(ids, ", ")
}

// Result records where a checkout attempt ended up. Status is always set:
// Committed with the written sale on success, Rejected alongside the typed
// error otherwise.
type Result struct {
	Status Status      `json:"status"`
	Sale   *model.Sale `json:"sale,omitempty"`
}

type UseCase interface {
	// Validate checks the cart and payment and computes the totals without
	// touching the ledger.
	Validate(c *cart.Cart, pay Payment) (*Totals, error)

	// Commit applies all of the cart's decrements and the sale write as one
	// atomic unit. On any failure nothing is visible: the ledger is back to
	// its pre-commit state and no sale exists.
	Commit(ctx context.Context, c *cart.Cart, pay Payment, cashier string) (*Result, error)
}
