// Package sales is the append-only store of committed sales. A sale is
// written once by checkout and only ever read afterwards (reprint, daily
// reports).
package sales

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/model"
)

var (
	ErrNotFound  = errors.New("sale not found")
	ErrDuplicate = errors.New("sale with this receipt id already exists")
)

type Repository interface {
	Append(ctx context.Context, sale *model.Sale) error
	FindByReceiptID(ctx context.Context, receiptID string) (*model.Sale, error)
	// ListByDay returns the sales committed on the given calendar day.
	ListByDay(ctx context.Context, day time.Time) ([]model.Sale, error)
}
