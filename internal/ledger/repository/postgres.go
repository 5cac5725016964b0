package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/catalog"
	"github.com/atayatoko/pos-core/internal/ledger"
	"github.com/atayatoko/pos-core/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertMovementQuery = `
	INSERT INTO stock_movements (
		id, item_id, movement_type, quantity_change,
		quantity_before, quantity_after, reference_id,
		notes, created_by, created_at
	)
	VALUES (
		:id, :item_id, :movement_type, :quantity_change,
		:quantity_before, :quantity_after, :reference_id,
		:notes, :created_by, :created_at
	)
`

// TryDecrement relies on a conditional UPDATE: the WHERE clause performs the
// read-check-write as one statement, so concurrent callers on the same item
// serialize inside the database and the quantity can never go negative.
func (r *PGRepository) TryDecrement(ctx context.Context, itemID string, qty int64, ref string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var after int64
	err = tx.GetContext(ctx, &after, `
		UPDATE catalog_items
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = now()
		WHERE id = $1 AND quantity_on_hand >= $2
		RETURNING quantity_on_hand
	`, itemID, qty)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(err, "decrement stock")
		}
		// Either the item is gone or stock is short; tell them apart.
		var available int64
		if err := r.DB.GetContext(ctx, &available,
			`SELECT quantity_on_hand FROM catalog_items WHERE id = $1`, itemID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.ErrNotFound
			}
			return err
		}
		return &ledger.InsufficientStockError{ItemID: itemID, Requested: qty, Available: available}
	}

	if err := r.logMovement(ctx, tx, itemID, ledger.MovementSale, -qty, after+qty, after, ref, "", nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Restore(ctx context.Context, itemID string, qty int64, ref string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var after int64
	err = tx.GetContext(ctx, &after, `
		UPDATE catalog_items
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = now()
		WHERE id = $1
		RETURNING quantity_on_hand
	`, itemID, qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.ErrNotFound
		}
		return errors.Wrap(err, "restore stock")
	}

	if err := r.logMovement(ctx, tx, itemID, ledger.MovementSaleRollback, qty, after-qty, after, ref, "", nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Adjust(ctx context.Context, itemID string, delta int64, reason, actor string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var after int64
	err = tx.GetContext(ctx, &after, `
		UPDATE catalog_items
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = now()
		WHERE id = $1 AND quantity_on_hand + $2 >= 0
		RETURNING quantity_on_hand
	`, itemID, delta)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(err, "adjust stock")
		}
		var available int64
		if err := r.DB.GetContext(ctx, &available,
			`SELECT quantity_on_hand FROM catalog_items WHERE id = $1`, itemID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return catalog.ErrNotFound
			}
			return err
		}
		return &ledger.InsufficientStockError{ItemID: itemID, Requested: -delta, Available: available}
	}

	var createdBy *string
	if actor != "" {
		createdBy = &actor
	}
	if err := r.logMovement(ctx, tx, itemID, ledger.MovementAdjustment, delta, after-delta, after, "", reason, createdBy); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) ListMovements(ctx context.Context, itemID string, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []model.StockMovement
	err := r.DB.SelectContext(ctx, &movements, `
		SELECT * FROM stock_movements
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, itemID, limit)
	return movements, err
}

func (r *PGRepository) logMovement(
	ctx context.Context, tx *sqlx.Tx,
	itemID, movementType string,
	change, before, after int64,
	ref, notes string, createdBy *string,
) error {
	var refID *string
	if ref != "" {
		refID = &ref
	}
	m := &model.StockMovement{
		ID:             uuid.New().String(),
		ItemID:         itemID,
		MovementType:   movementType,
		QuantityChange: change,
		QuantityBefore: before,
		QuantityAfter:  after,
		ReferenceID:    refID,
		Notes:          notes,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
	_, err := tx.NamedExecContext(ctx, insertMovementQuery, m)
	return errors.Wrap(err, "log stock movement")
}
