package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/sales"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// Append writes the sale header and its lines in one transaction; the sale
// either exists completely or not at all.
func (r *PGRepository) Append(ctx context.Context, sale *model.Sale) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO sales (
			receipt_id, ts, subtotal, tax, total,
			payment_method, amount_tendered, change_due, cashier
		)
		VALUES (
			:receipt_id, :ts, :subtotal, :tax, :total,
			:payment_method, :amount_tendered, :change_due, :cashier
		)
	`, sale)
	if err != nil {
		return errors.Wrap(err, "insert sale")
	}

	for i, line := range sale.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (
				receipt_id, line_no, item_id, name,
				unit_price, unit_label, quantity, line_total
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, sale.ReceiptID, i, line.ItemID, line.Name,
			line.UnitPrice, line.UnitLabel, line.Quantity, line.LineTotal)
		if err != nil {
			return errors.Wrap(err, "insert sale line")
		}
	}
	return tx.Commit()
}

func (r *PGRepository) FindByReceiptID(ctx context.Context, receiptID string) (*model.Sale, error) {
	var sale model.Sale
	err := r.DB.GetContext(ctx, &sale, `SELECT * FROM sales WHERE receipt_id = $1`, receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sales.ErrNotFound
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &sale.Lines, `
		SELECT item_id, name, unit_price, unit_label, quantity, line_total
		FROM sale_lines WHERE receipt_id = $1 ORDER BY line_no
	`, receiptID)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *PGRepository) ListByDay(ctx context.Context, day time.Time) ([]model.Sale, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var out []model.Sale
	err := r.DB.SelectContext(ctx, &out, `
		SELECT * FROM sales WHERE ts >= $1 AND ts < $2 ORDER BY ts
	`, start, end)
	if err != nil {
		return nil, err
	}

	for i := range out {
		err = r.DB.SelectContext(ctx, &out[i].Lines, `
			SELECT item_id, name, unit_price, unit_label, quantity, line_total
			FROM sale_lines WHERE receipt_id = $1 ORDER BY line_no
		`, out[i].ReceiptID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
