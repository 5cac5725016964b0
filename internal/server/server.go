// Package server exposes the transactional core over HTTP for the UI and
// report collaborators. It does no authorization: the caller supplies the
// session's buyer tier and cashier identity with each request.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/atayatoko/pos-core/internal/cart"
	"github.com/atayatoko/pos-core/internal/catalog"
	catalogdto "github.com/atayatoko/pos-core/internal/catalog/dto"
	"github.com/atayatoko/pos-core/internal/checkout"
	"github.com/atayatoko/pos-core/internal/identity"
	"github.com/atayatoko/pos-core/internal/importer"
	"github.com/atayatoko/pos-core/internal/ledger"
	"github.com/atayatoko/pos-core/internal/model"
	"github.com/atayatoko/pos-core/internal/pricing"
	"github.com/atayatoko/pos-core/internal/sales"
	"github.com/atayatoko/pos-core/pkg/logger"
)

type Server struct {
	catalogUC  catalog.UseCase
	checkoutUC checkout.UseCase
	ledger     ledger.Repository
	sales      sales.Repository
	reconciler *importer.Reconciler
	logger     logger.Logger
}

func New(
	catalogUC catalog.UseCase,
	checkoutUC checkout.UseCase,
	led ledger.Repository,
	salesRepo sales.Repository,
	reconciler *importer.Reconciler,
	log logger.Logger,
) *Server {
	return &Server{
		catalogUC:  catalogUC,
		checkoutUC: checkoutUC,
		ledger:     led,
		sales:      salesRepo,
		reconciler: reconciler,
		logger:     log,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.listItems)
			r.Post("/", s.createItem)
			r.Get("/scan/{code}", s.getItemByScanCode)
			r.Get("/{id}", s.getItem)
			r.Put("/{id}", s.updateItem)
			r.Delete("/{id}", s.deleteItem)
			r.Post("/{id}/adjust", s.adjustStock)
			r.Get("/{id}/movements", s.listMovements)
		})

		r.Post("/checkout", s.commitCheckout)
		r.Post("/checkout/validate", s.validateCheckout)
		r.Post("/import", s.importBatch)

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", s.listSalesByDay)
			r.Get("/{receiptID}", s.getSale)
		})

		r.Get("/scan-codes/{code}", s.validateScanCode)
	})
	return r
}

// ---- catalog ----

type itemRequest struct {
	SKU                string `json:"sku"`
	Barcode            string `json:"barcode"`
	Name               string `json:"name"`
	Category           string `json:"category"`
	RetailPrice        int64  `json:"retail_price"`
	WholesalePrice     int64  `json:"wholesale_price"`
	WholesaleUnitLabel string `json:"wholesale_unit_label"`
	CostPrice          int64  `json:"cost_price"`
	Supplier           string `json:"supplier"`
	ImageURL           string `json:"image_url"`
	InitialQuantity    int64  `json:"initial_quantity"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	item, err := s.catalogUC.CreateItem(r.Context(), &catalogdto.CreateItemInput{
		SKU:                req.SKU,
		Barcode:            req.Barcode,
		Name:               req.Name,
		Category:           req.Category,
		RetailPrice:        req.RetailPrice,
		WholesalePrice:     req.WholesalePrice,
		WholesaleUnitLabel: req.WholesaleUnitLabel,
		CostPrice:          req.CostPrice,
		Supplier:           req.Supplier,
		ImageURL:           req.ImageURL,
		InitialQuantity:    req.InitialQuantity,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	item, err := s.catalogUC.UpdateItem(r.Context(), &catalogdto.UpdateItemInput{
		ID:                 chi.URLParam(r, "id"),
		SKU:                req.SKU,
		Barcode:            req.Barcode,
		Name:               req.Name,
		Category:           req.Category,
		RetailPrice:        req.RetailPrice,
		WholesalePrice:     req.WholesalePrice,
		WholesaleUnitLabel: req.WholesaleUnitLabel,
		CostPrice:          req.CostPrice,
		Supplier:           req.Supplier,
		ImageURL:           req.ImageURL,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.catalogUC.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalogUC.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, item)
}

func (s *Server) getItemByScanCode(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalogUC.GetItemByScanCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, item)
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &catalogdto.CatalogFilters{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     atoiDefault(q.Get("page"), 1),
		PageSize: atoiDefault(q.Get("page_size"), 0),
	}

	items, count, err := s.catalogUC.ListItems(r.Context(), filters)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"items": items, "total": count})
}

// ---- stock ----

type adjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (s *Server) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.ledger.Adjust(r.Context(), id, req.Delta, req.Reason, req.Actor); err != nil {
		s.respondError(w, err)
		return
	}

	item, err := s.catalogUC.GetItem(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, item)
}

func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := s.ledger.ListMovements(r.Context(),
		chi.URLParam(r, "id"), atoiDefault(r.URL.Query().Get("limit"), 50))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"movements": movements})
}

// ---- checkout ----

type checkoutRequest struct {
	Cashier string             `json:"cashier"`
	Tier    string             `json:"tier"`
	Payment checkout.Payment   `json:"payment"`
	Lines   []checkoutLineItem `json:"lines"`
}

type checkoutLineItem struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// buildCart reassembles the session's cart on the server. Prices are
// resolved and snapshotted here, once per line, exactly as the client-side
// cart would have done at add time.
func (s *Server) buildCart(r *http.Request, req *checkoutRequest) (*cart.Cart, error) {
	tier, err := pricing.ParseTier(req.Tier)
	if err != nil {
		return nil, &checkout.ValidationError{Reason: err.Error()}
	}

	c := cart.New()
	for _, line := range req.Lines {
		item, err := s.catalogUC.GetItem(r.Context(), line.ItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, &checkout.ValidationError{Reason: "unknown item " + line.ItemID}
			}
			return nil, err
		}
		if !item.IsActive {
			return nil, &checkout.ValidationError{Reason: "item " + line.ItemID + " is no longer sold"}
		}
		if line.Quantity <= 0 {
			return nil, &checkout.ValidationError{Reason: "non-positive quantity for item " + line.ItemID}
		}
		c.AddQuantity(item, tier, line.Quantity)
	}
	return c, nil
}

func (s *Server) validateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	c, err := s.buildCart(r, &req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	totals, err := s.checkoutUC.Validate(c, req.Payment)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, totals)
}

func (s *Server) commitCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Cashier == "" {
		s.respondError(w, &checkout.ValidationError{Reason: "cashier identity is required"})
		return
	}

	c, err := s.buildCart(r, &req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := s.checkoutUC.Commit(r.Context(), c, req.Payment, req.Cashier)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, result)
}

// ---- import ----

type importRequest struct {
	Rows []model.ImportRow `json:"rows"`
}

func (s *Server) importBatch(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	summary, err := s.reconciler.Reconcile(r.Context(), req.Rows)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, summary)
}

// ---- sales ----

func (s *Server) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := s.sales.FindByReceiptID(r.Context(), chi.URLParam(r, "receiptID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, sale)
}

func (s *Server) listSalesByDay(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if v := r.URL.Query().Get("day"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.respondError(w, &checkout.ValidationError{Reason: "day must be yyyy-mm-dd"})
			return
		}
		day = parsed
	}

	list, err := s.sales.ListByDay(r.Context(), day)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"sales": list})
}

// ---- scan codes ----

func (s *Server) validateScanCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	s.respond(w, http.StatusOK, map[string]interface{}{
		"code":  code,
		"valid": identity.ValidateScanCode(code),
	})
}

// ---- plumbing ----

var errBadJSON = &checkout.ValidationError{Reason: "malformed JSON body"}

func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields() // closed record types: unknown fields are rejected
	if err := dec.Decode(dst); err != nil {
		return errBadJSON
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	var (
		verr      *checkout.ValidationError
		stockErr  *checkout.StockError
		importErr *importer.ImportError
	)

	switch {
	case errors.As(err, &verr):
		s.respond(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": verr.Error()})
	case errors.As(err, &stockErr):
		s.respond(w, http.StatusConflict, map[string]interface{}{
			"error": stockErr.Error(), "short_lines": stockErr.Short,
		})
	case errors.Is(err, checkout.ErrCommitConflict):
		s.respond(w, http.StatusServiceUnavailable, map[string]interface{}{"error": err.Error()})
	case errors.As(err, &importErr):
		s.respond(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "import rejected", "rows": importErr.Rows,
		})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, sales.ErrNotFound):
		s.respond(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respond(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
	}
}

func atoiDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return fallback
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
