package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
)

type Ledger interface {
	AdjustStock(ctx context.Context, a inventory.Adjustment) (*inventory.InventoryStatus, error)
	ReserveStock(ctx context.Context, productID, variantID string, qty int) (*inventory.InventoryStatus, error)
	ReleaseStock(ctx context.Context, productID, variantID string, qty int) (*inventory.InventoryStatus, error)
	GetInventoryStatus(ctx context.Context, productID string) (*inventory.InventoryStatus, error)
	GetLowStockProducts(ctx context.Context, limit int) ([]inventory.InventoryStatus, error)
	CheckStockAvailability(ctx context.Context, items []inventory.StockRequest) (*inventory.AvailabilityReport, error)
	GetInventoryHistory(ctx context.Context, q inventory.HistoryQuery) ([]inventory.HistoryEntry, error)
}

type InventoryHandler struct {
	Ledger Ledger
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/low-stock", h.lowStock)
		r.Post("/availability", h.availability)
		r.Get("/{productID}", h.status)
		r.Get("/{productID}/history", h.history)
		r.Post("/{productID}/adjust", h.adjust)
		r.Post("/{productID}/reserve", h.reserve)
		r.Post("/{productID}/release", h.release)
	})
}

type adjustReq struct {
	VariantID string           `json:"variantId"`
	Change    int              `json:"change"`
	Reason    inventory.Reason `json:"reason"`
	Reference string           `json:"reference"`
	UserID    string           `json:"userId"`
	Metadata  map[string]any   `json:"metadata"`
}

type quantityReq struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

func (h *InventoryHandler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Ledger.GetInventoryStatus(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	st, err := h.Ledger.AdjustStock(r.Context(), inventory.Adjustment{
		ProductID: chi.URLParam(r, "productID"),
		VariantID: req.VariantID,
		Change:    req.Change,
		Reason:    req.Reason,
		Reference: req.Reference,
		ActorID:   req.UserID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.Ledger.ReserveStock)
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(w, r, h.Ledger.ReleaseStock)
}

func (h *InventoryHandler) quantityOp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, productID, variantID string, qty int) (*inventory.InventoryStatus, error),
) {
	var req quantityReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	st, err := op(r.Context(), chi.URLParam(r, "productID"), req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *InventoryHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	out, err := h.Ledger.GetLowStockProducts(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) availability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []inventory.StockRequest `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	report, err := h.Ledger.CheckStockAvailability(r.Context(), req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *InventoryHandler) history(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	entries, err := h.Ledger.GetInventoryHistory(r.Context(), inventory.HistoryQuery{
		ProductID: chi.URLParam(r, "productID"),
		VariantID: r.URL.Query().Get("variantId"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid query parameter %s", key)
	}
	return n, nil
}
