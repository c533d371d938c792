package checkout

import (
	"strings"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
)

// Event is a provider "checkout session completed" notification reduced to
// the fields the coordinator reads.
type Event struct {
	ID                string   `json:"id"`
	SessionID         string   `json:"sessionId,omitempty"`
	ClientReferenceID string   `json:"clientReferenceId,omitempty"`
	PaymentIntentID   string   `json:"paymentIntentId,omitempty"`
	CustomerEmail     string   `json:"customerEmail,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	PaymentStatus     string   `json:"paymentStatus,omitempty"`
	AmountTotal       int64    `json:"amountTotal,omitempty"`
	Metadata          Metadata `json:"metadata"`
}

// Metadata is echoed back by the provider exactly as PrepareCheckout set it.
type Metadata struct {
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// CartSessionID is the shop session whose cart the payment covers: metadata
// first, then the client reference.
func (e Event) CartSessionID() string {
	if s := strings.TrimSpace(e.Metadata.SessionID); s != "" {
		return s
	}
	return strings.TrimSpace(e.ClientReferenceID)
}

type Outcome string

const (
	OutcomeOrderCreated   Outcome = "order_created"
	OutcomeDuplicate      Outcome = "duplicate_delivery"
	OutcomeMissingSession Outcome = "missing_session"
	OutcomeEmptyCart      Outcome = "empty_cart"
	OutcomeUnattributable Outcome = "unattributable"
	OutcomeNoValidItems   Outcome = "no_valid_items"
	OutcomeQueued         Outcome = "queued"
)

// Result says what a delivery did. Every outcome is an acknowledged delivery;
// only a returned error asks the provider to retry.
type Result struct {
	Outcome Outcome `json:"outcome"`
	OrderID string  `json:"orderId,omitempty"`
	UserID  string  `json:"userId,omitempty"`
}

const (
	channelSession = "session:"
	channelUser    = "user:"

	NotificationCartUpdated  = "cart:updated"
	NotificationOrderPaid    = "order:paid"
	NotificationOrderPending = "order:pending"
)

// CartUpdated carries the cart left after checkout. It is empty unless the
// cart was edited while the payment was processed.
type CartUpdated struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Items     []cart.Item `json:"items"`
}

// OrderPlaced is sent as order:paid when the payment settled and as
// order:pending otherwise.
type OrderPlaced struct {
	Type       string `json:"type"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	TotalCents int64  `json:"totalCents"`
	Currency   string `json:"currency"`
}
