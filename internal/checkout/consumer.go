package checkout

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/apperr"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/events"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/kafka"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
)

// CompletionHandler is anything that accepts a checkout completion: the
// Coordinator processes it inline, the Forwarder queues it for a worker.
type CompletionHandler interface {
	HandleCheckoutCompleted(ctx context.Context, ev Event) (Result, error)
}

type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Consumer adapts CheckoutCompleted envelopes from Kafka to a handler. The
// Redis dedup only short-circuits replays; the payment unique constraint
// still guards correctness when it misses.
type Consumer struct {
	Handler CompletionHandler
	Dedup   Dedup // optional
	Log     *zap.Logger
}

// Handle is a kafka.Handler. Undecodable and foreign messages are logged and
// committed; handler errors leave the offset uncommitted for redelivery.
func (c *Consumer) Handle(ctx context.Context, m kafkago.Message) error {
	log := logging.FromContext(ctx, c.Log).With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	env, err := events.Decode(m.Value)
	if err != nil {
		log.Error("checkout_message_undecodable", zap.Error(err))
		return nil
	}
	if env.EventType != events.EventCheckoutCompleted {
		return nil
	}
	log = log.With(zap.String("event_id", env.EventID))

	if c.Dedup != nil {
		seen, err := c.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("checkout_dedup_unavailable", zap.Error(err))
		} else if seen {
			log.Debug("checkout_event_already_processed")
			return nil
		}
	}

	ev, err := kafka.UnwrapPayload[Event](env.Payload)
	if err != nil {
		log.Error("checkout_payload_undecodable", zap.Error(err))
		return nil
	}
	if ev.ID == "" {
		ev.ID = env.EventID
	}

	res, err := c.Handler.HandleCheckoutCompleted(logging.WithContext(ctx, log), ev)
	if err != nil {
		return err
	}
	log.Info("checkout_event_handled", zap.String("outcome", string(res.Outcome)), zap.String("order_id", res.OrderID))

	if c.Dedup != nil {
		if err := c.Dedup.Mark(ctx, env.EventID); err != nil {
			log.Warn("checkout_dedup_mark_failed", zap.Error(err))
		}
	}
	return nil
}

type CompletionPublisher interface {
	CheckoutCompleted(ctx context.Context, eventID, sessionID string, payload any) error
}

// Forwarder queues completions on Kafka for the checkout worker instead of
// processing them in the webhook request.
type Forwarder struct {
	Publisher CompletionPublisher
}

func (f *Forwarder) HandleCheckoutCompleted(ctx context.Context, ev Event) (Result, error) {
	if err := f.Publisher.CheckoutCompleted(ctx, ev.ID, ev.CartSessionID(), ev); err != nil {
		return Result{}, apperr.Storage("checkout.forward", err)
	}
	return Result{Outcome: OutcomeQueued}, nil
}
