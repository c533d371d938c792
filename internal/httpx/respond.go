package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/apperr"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/checkout"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error     string `json:"error"`
	Requested *int   `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// decodeJSON reads one JSON object from the body. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as 500 without its message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var short *inventory.InsufficientStockError
	switch {
	case errors.As(err, &short):
		writeJSON(w, http.StatusConflict, errorBody{Error: "insufficient_stock", Requested: &short.Requested, Available: &short.Available})
	case errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, inventory.ErrVariantNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, inventory.ErrTrackingDisabled),
		errors.Is(err, inventory.ErrProductInactive),
		errors.Is(err, orders.ErrBadTransition),
		errors.Is(err, cart.ErrConcurrentUpdate),
		errors.Is(err, cart.ErrMergeInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidReason),
		errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case apperr.IsStorage(err):
		logging.FromContext(r.Context(), nil).Error("storage_unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "storage unavailable"})
	default:
		logging.FromContext(r.Context(), nil).Error("request_failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
