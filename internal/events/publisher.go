package events

import (
	"context"
	"fmt"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/kafka"
)

// Writer is the part of *kafka.Producer the publisher needs.
type Writer interface {
	Publish(key, value []byte, headers ...kafkago.Header)
	Send(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// Publisher turns domain facts into envelopes on their topics. Writers are
// keyed by topic; a topic without a writer is an error.
type Publisher struct {
	Service string
	Writers map[string]Writer
}

func headers(env Envelope) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(env.EventType)},
		{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	}
}

func (p *Publisher) writer(topic string) (Writer, error) {
	w, ok := p.Writers[topic]
	if !ok || w == nil {
		return nil, fmt.Errorf("no writer for topic %s", topic)
	}
	return w, nil
}

// StockAdjusted queues an InventoryAdjusted event keyed by product.
func (p *Publisher) StockAdjusted(_ context.Context, e inventory.HistoryEntry) error {
	w, err := p.writer(TopicInventoryAdjusted)
	if err != nil {
		return err
	}
	env := NewEnvelope("", EventInventoryAdjusted, p.Service, e.ProductID, InventoryAdjustedPayload{
		ProductID:     e.ProductID,
		VariantID:     e.VariantID,
		Change:        e.Change,
		PreviousStock: e.PreviousStock,
		NewStock:      e.NewStock,
		Reason:        string(e.Reason),
		Reference:     e.Reference,
		ActorID:       e.UserID,
	})
	w.Publish(PartitionKey(e.ProductID), kafka.MustMarshal(env), headers(env)...)
	return nil
}

// OrderPaid queues an OrderPaid event keyed by order.
func (p *Publisher) OrderPaid(_ context.Context, pl OrderPaidPayload) error {
	w, err := p.writer(TopicOrderPaid)
	if err != nil {
		return err
	}
	env := NewEnvelope("", EventOrderPaid, p.Service, pl.OrderID, pl)
	w.Publish(PartitionKey(pl.OrderID), kafka.MustMarshal(env), headers(env)...)
	return nil
}

// CheckoutCompleted writes a provider completion synchronously so the webhook
// can tell the provider to retry when the broker is unavailable. eventID is
// the provider's event id and becomes the envelope id used for dedup.
func (p *Publisher) CheckoutCompleted(ctx context.Context, eventID, sessionID string, payload any) error {
	w, err := p.writer(TopicCheckoutCompleted)
	if err != nil {
		return err
	}
	env := NewEnvelope(eventID, EventCheckoutCompleted, p.Service, sessionID, payload)
	return w.Send(ctx, PartitionKey(sessionID), kafka.MustMarshal(env), headers(env)...)
}
