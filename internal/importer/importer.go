// Package importer merges externally supplied catalog rows in one shot.
// The whole batch is validated before anything is written: one bad row
// rejects the batch, so a failed import never leaves half the spreadsheet
// in the catalog.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atayatoko/pos-core/internal/catalog"
	"github.com/atayatoko/pos-core/internal/identity"
	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/pkg/logger"
)

// RowError points at one offending row by its position in the batch.
type RowError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportError rejects the whole batch; Rows lists every offending row so
// the caller can fix them all in one pass.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	reasons := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		reasons[i] = fmt.Sprintf("row %d: %s", r.Index, r.Reason)
	}
	return "import rejected: " + strings.Join(reasons, "; ")
}

type Summary struct {
	Applied           int `json:"applied"`
	SKUsAssigned      int `json:"skus_assigned"`
	ScanCodesAssigned int `json:"scan_codes_assigned"`
}

type Reconciler struct {
	repo   catalog.Repository
	logger logger.Logger
}

func NewReconciler(repo catalog.Repository, log logger.Logger) *Reconciler {
	return &Reconciler{repo: repo, logger: log}
}

// Reconcile validates and persists a batch of import rows. Rows without a
// SKU get a generated one; rows without a barcode get a scan code derived
// from their SKU. Duplicate SKUs inside the batch, or against the existing
// catalog, reject the batch.
func (r *Reconciler) Reconcile(ctx context.Context, rows []model.ImportRow) (*Summary, error) {
	if len(rows) == 0 {
		return nil, &ImportError{Rows: []RowError{{Index: 0, Reason: "batch is empty"}}}
	}

	summary := &Summary{}
	var rowErrs []RowError
	seenSKU := make(map[string]int, len(rows))

	items := make([]*model.CatalogItem, 0, len(rows))
	now := time.Now()

	for i := range rows {
		row := rows[i] // copy; assigned identifiers stay local

		if row.Name == "" {
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "missing name"})
			continue
		}
		if row.RetailPrice <= 0 {
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "missing or non-positive retail price"})
			continue
		}
		if row.QuantityOnHand < 0 {
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "negative quantity"})
			continue
		}

		if row.SKU == "" {
			row.SKU = identity.GenerateSKU()
			summary.SKUsAssigned++
		}
		if first, dup := seenSKU[row.SKU]; dup {
			rowErrs = append(rowErrs, RowError{
				Index:  i,
				Reason: fmt.Sprintf("duplicate SKU %s (first used by row %d)", row.SKU, first),
			})
			continue
		}
		seenSKU[row.SKU] = i

		if row.Barcode == "" {
			row.Barcode = identity.GenerateScanCode(row.SKU)
			summary.ScanCodesAssigned++
		} else if !identity.ValidateScanCode(row.Barcode) {
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "invalid scan code " + row.Barcode})
			continue
		}

		barcode := row.Barcode
		item := &model.CatalogItem{
			BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			SKU:                row.SKU,
			Barcode:            &barcode,
			Name:               row.Name,
			Category:           row.Category,
			RetailPrice:        row.RetailPrice,
			WholesalePrice:     row.WholesalePrice,
			WholesaleUnitLabel: row.WholesaleUnitLabel,
			CostPrice:          row.CostPrice,
			Supplier:           row.Supplier,
			QuantityOnHand:     row.QuantityOnHand,
			IsActive:           true,
		}
		if row.ImageURL != "" {
			item.ImageURL = &row.ImageURL
		}
		items = append(items, item)
	}

	// Cross-batch collisions are errors too, not upserts: silently merging
	// two stock counts under one SKU is how overcounts start.
	if len(seenSKU) > 0 {
		skus := make([]string, 0, len(seenSKU))
		for sku := range seenSKU {
			skus = append(skus, sku)
		}
		existing, err := r.repo.ExistingSKUs(ctx, skus)
		if err != nil {
			return nil, err
		}
		for _, sku := range existing {
			rowErrs = append(rowErrs, RowError{
				Index:  seenSKU[sku],
				Reason: fmt.Sprintf("SKU %s already exists in catalog", sku),
			})
		}
	}

	if len(rowErrs) > 0 {
		return nil, &ImportError{Rows: rowErrs}
	}

	if err := r.repo.CreateBatch(ctx, items); err != nil {
		return nil, err
	}

	summary.Applied = len(items)
	r.logger.Info("import batch applied",
		zap.Int("rows", summary.Applied),
		zap.Int("skus_assigned", summary.SKUsAssigned),
		zap.Int("scan_codes_assigned", summary.ScanCodesAssigned))
	return summary, nil
}
