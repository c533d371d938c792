package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/checkout"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
)

const eventCheckoutSessionCompleted = "checkout.session.completed"

type CartMerger interface {
	MergeSessionCart(ctx context.Context, sessionID, userID string) (*cart.Session, error)
}

type CheckoutPreparer interface {
	PrepareCheckout(ctx context.Context, sessionID, userID, email string) (*checkout.Preparation, error)
}

// CheckoutHandler serves the login-time merge hook, checkout preparation and
// the payment provider webhook.
type CheckoutHandler struct {
	Merger      CartMerger
	Preparer    CheckoutPreparer
	Completions checkout.CompletionHandler
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/sessions/merge", h.mergeSession)
	r.Post("/checkout/sessions", h.prepare)
	r.Post("/webhooks/payments", h.webhook)
}

type mergeReq struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

func (h *CheckoutHandler) mergeSession(w http.ResponseWriter, r *http.Request) {
	var req mergeReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	sess, err := h.Merger.MergeSessionCart(r.Context(), req.SessionID, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type prepareReq struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
}

func (h *CheckoutHandler) prepare(w http.ResponseWriter, r *http.Request) {
	var req prepareReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		badRequest(w, "sessionId is required")
		return
	}
	p, err := h.Preparer.PrepareCheckout(r.Context(), req.SessionID, req.UserID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// providerEvent is the subset of the provider's webhook body that is read.
type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentIntent     string `json:"payment_intent"`
			CustomerEmail     string `json:"customer_email"`
			CustomerDetails   struct {
				Email string `json:"email"`
			} `json:"customer_details"`
			Currency      string            `json:"currency"`
			PaymentStatus string            `json:"payment_status"`
			AmountTotal   int64             `json:"amount_total"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (e providerEvent) checkoutEvent() checkout.Event {
	o := e.Data.Object
	email := o.CustomerEmail
	if email == "" {
		email = o.CustomerDetails.Email
	}
	return checkout.Event{
		ID:                e.ID,
		SessionID:         o.ID,
		ClientReferenceID: o.ClientReferenceID,
		PaymentIntentID:   o.PaymentIntent,
		CustomerEmail:     email,
		Currency:          o.Currency,
		PaymentStatus:     o.PaymentStatus,
		AmountTotal:       o.AmountTotal,
		Metadata: checkout.Metadata{
			SessionID: o.Metadata["sessionId"],
			UserID:    o.Metadata["userId"],
			UserEmail: o.Metadata["userEmail"],
		},
	}
}

// webhook acknowledges every event it processed or judged unprocessable. Only
// storage failures answer 503 so the provider redelivers.
func (h *CheckoutHandler) webhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), nil)

	var ev providerEvent
	if err := decodeJSON(r, &ev); err != nil {
		// redelivering the same body cannot succeed
		log.Warn("webhook_unprocessable", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": "unprocessable"})
		return
	}
	if ev.Type != eventCheckoutSessionCompleted {
		log.Debug("webhook_event_ignored", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	res, err := h.Completions.HandleCheckoutCompleted(r.Context(), ev.checkoutEvent())
	if err != nil {
		log.Error("webhook_processing_failed", zap.String("event_id", ev.ID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "temporarily unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": res.Outcome})
}
