package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/kafka"
)

const (
	EventCheckoutCompleted = "CheckoutCompleted"
	EventInventoryAdjusted = "InventoryAdjusted"
	EventOrderPaid         = "OrderPaid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload as version 1 of eventType. An empty eventID gets a
// fresh uuid.
func NewEnvelope(eventID, eventType, producer, correlationID string, payload any) Envelope {
	if eventID == "" {
		eventID = uuid.NewString()
	}
	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       kafka.MustMarshal(payload),
	}
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" || env.EventType == "" {
		return env, fmt.Errorf("decode envelope: missing event_id or event_type")
	}
	return env, nil
}

type InventoryAdjustedPayload struct {
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id,omitempty"`
	Change        int    `json:"change"`
	PreviousStock int    `json:"previous_stock"`
	NewStock      int    `json:"new_stock"`
	Reason        string `json:"reason"`
	Reference     string `json:"reference,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
}

type ItemPrice struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

type OrderPaidPayload struct {
	OrderID         string      `json:"order_id"`
	UserID          string      `json:"user_id"`
	SessionID       string      `json:"session_id"`
	Status          string      `json:"status"`
	TotalCents      int64       `json:"total_cents"`
	Currency        string      `json:"currency"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	Items           []ItemPrice `json:"items"`
}
