package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/atayatoko/pos-core/internal/catalog"
	"github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertItemQuery = `
	INSERT INTO catalog_items (
		id, sku, barcode, name, category,
		retail_price, wholesale_price, wholesale_unit_label,
		cost_price, supplier, image_url, quantity_on_hand,
		is_active, created_at, updated_at
	)
	VALUES (
		:id, :sku, :barcode, :name, :category,
		:retail_price, :wholesale_price, :wholesale_unit_label,
		:cost_price, :supplier, :image_url, :quantity_on_hand,
		:is_active, :created_at, :updated_at
	)
`

func (r *PGRepository) Create(ctx context.Context, item *model.CatalogItem) error {
	_, err := r.DB.NamedExecContext(ctx, insertItemQuery, item)
	return errors.Wrap(err, "insert catalog item")
}

func (r *PGRepository) CreateBatch(ctx context.Context, items []*model.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		if _, err := tx.NamedExecContext(ctx, insertItemQuery, item); err != nil {
			return errors.Wrapf(err, "insert catalog item sku=%s", item.SKU)
		}
	}
	return tx.Commit()
}

func (r *PGRepository) Update(ctx context.Context, item *model.CatalogItem) error {
	// quantity_on_hand is intentionally absent: the ledger owns it.
	query := `
		UPDATE catalog_items SET
			sku = :sku,
			barcode = :barcode,
			name = :name,
			category = :category,
			retail_price = :retail_price,
			wholesale_price = :wholesale_price,
			wholesale_unit_label = :wholesale_unit_label,
			cost_price = :cost_price,
			supplier = :supplier,
			image_url = :image_url,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.DB.NamedExecContext(ctx, query, item)
	if err != nil {
		return errors.Wrap(err, "update catalog item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *PGRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE catalog_items SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "soft delete catalog item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	err := r.DB.GetContext(ctx, &item, `SELECT * FROM catalog_items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) FindByScanCode(ctx context.Context, code string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	err := r.DB.GetContext(ctx, &item,
		`SELECT * FROM catalog_items WHERE barcode = $1 AND is_active = true LIMIT 1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CatalogFilters) ([]model.CatalogItem, int, error) {
	var items []model.CatalogItem
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if !f.IncludeHidden {
		conditions = append(conditions, "is_active = true")
	}
	if f.Category != "" {
		conditions = append(conditions, "category = :category")
		args["category"] = f.Category
	}
	if f.Search != "" {
		conditions = append(conditions, "name ILIKE :search")
		args["search"] = "%" + f.Search + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM catalog_items" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM catalog_items" + whereClause + " ORDER BY name"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM catalog_items WHERE sku = $1`
	args := []interface{}{sku}
	if excludeID != "" {
		query += ` AND id != $2`
		args = append(args, excludeID)
	}

	if err := r.DB.GetContext(ctx, &count, query, args...); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *PGRepository) IsBarcodeUnique(ctx context.Context, barcode, excludeID string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM catalog_items WHERE barcode = $1`
	args := []interface{}{barcode}
	if excludeID != "" {
		query += ` AND id != $2`
		args = append(args, excludeID)
	}

	if err := r.DB.GetContext(ctx, &count, query, args...); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *PGRepository) ExistingSKUs(ctx context.Context, skus []string) ([]string, error) {
	if len(skus) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT sku FROM catalog_items WHERE sku IN (?)`, skus)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var existing []string
	err = r.DB.SelectContext(ctx, &existing, query, args...)
	return existing, err
}
