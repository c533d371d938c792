package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type OrderTransitioner interface {
	TransitionOrder(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error)
}

type OrdersHandler struct {
	Orders      OrderReader
	Transitions OrderTransitioner
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/status", h.setStatus)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status orders.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Status == "" {
		badRequest(w, "status is required")
		return
	}
	o, err := h.Transitions.TransitionOrder(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
